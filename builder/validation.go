package builder

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/sicko7947/taskflow"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// definition is the shape checked by struct validation
type definition struct {
	Name       string          `validate:"required,excludes=."`
	Components []componentDef `validate:"dive"`
}

type componentDef struct {
	Name    string   `validate:"required,excludes=."`
	Group   bool     `validate:"-"`
	Members []string `validate:"dive,required,excludes=."`
}

// Validate checks a workflow definition before it is turned into an instance.
// References to names that appear nowhere are accepted: they fail at run time
// as missing inputs. References to a later step, or to the step itself, can
// never resolve and are rejected.
func Validate(name string, components []taskflow.Component) error {
	def := definition{Name: name}
	for i, c := range components {
		cd := componentDef{Name: c.Name(), Group: c.Kind() == taskflow.ComponentGroup}
		if cd.Group {
			for _, t := range c.Tasks() {
				if t == nil {
					return invalid("group %q has a nil task", cd.Name)
				}
				cd.Members = append(cd.Members, t.Name())
			}
		} else if _, ok := c.Task(); !ok {
			return invalid("step %d has a nil task", i)
		}
		def.Components = append(def.Components, cd)
	}

	if err := validate.Struct(def); err != nil {
		return invalid("%s", describeValidation(err))
	}

	if err := validateNames(def); err != nil {
		return err
	}

	return validateReferences(def, components)
}

// ValidateWorkflow re-checks an already built instance
func ValidateWorkflow(w *taskflow.Workflow) error {
	return Validate(w.Name(), w.Components())
}

// validateNames ensures every step name and every task name is unique
func validateNames(def definition) error {
	steps := make(map[string]bool)
	tasks := make(map[string]bool)

	for _, c := range def.Components {
		if steps[c.Name] {
			return invalid("duplicate step name %q", c.Name)
		}
		steps[c.Name] = true

		if !c.Group {
			if tasks[c.Name] {
				return invalid("duplicate task name %q", c.Name)
			}
			tasks[c.Name] = true
			continue
		}

		if len(c.Members) == 0 {
			return invalid("group %q has no tasks", c.Name)
		}
		for _, m := range c.Members {
			if tasks[m] {
				return invalid("duplicate task name %q in group %q", m, c.Name)
			}
			tasks[m] = true
		}
	}

	return nil
}

// validateReferences rejects malformed, self and forward references
func validateReferences(def definition, components []taskflow.Component) error {
	position := make(map[string]int)
	memberOf := make(map[string]string)
	for i, c := range def.Components {
		position[c.Name] = i
		for _, m := range c.Members {
			memberOf[m] = c.Name
		}
	}

	for i, c := range components {
		for _, task := range c.Tasks() {
			for _, decl := range task.Inputs() {
				raw, ok := decl.Source.Ref()
				if !ok {
					continue
				}

				ref, err := taskflow.ParseRef(string(raw))
				if err != nil {
					return invalid("task %q input %q: %v", task.Name(), decl.Key, err)
				}

				if group, ok := memberOf[ref.Producer()]; ok {
					return invalid("task %q input %q: reference %q must be qualified as %s.%s",
						task.Name(), decl.Key, ref, group, ref)
				}

				at, known := position[ref.Producer()]
				if !known {
					continue
				}
				if at >= i {
					return invalid("task %q input %q: reference %q points at a step that has not run yet",
						task.Name(), decl.Key, ref)
				}
			}
		}
	}

	return nil
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return err.Error()
	}
	fe := verrs[0]
	return fmt.Sprintf("field %s failed %q validation", fe.Namespace(), fe.Tag())
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", taskflow.ErrInvalidDefinition, fmt.Sprintf(format, args...))
}
