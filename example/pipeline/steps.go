package pipeline

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/sicko7947/taskflow"
	"github.com/sicko7947/taskflow/agent"
)

// NewFetchTask publishes the normalized prompt as the document
func NewFetchTask(prompt string) *taskflow.FuncTask {
	return taskflow.NewTask(
		TaskFetch,
		func(ctx *taskflow.TaskContext, in taskflow.Inputs) (taskflow.Values, error) {
			text, _ := in.Get("prompt").AsString()
			doc := strings.Join(strings.Fields(text), " ")
			if doc == "" {
				return nil, fmt.Errorf("prompt is blank")
			}
			ctx.Logger.Info().Int("length", len(doc)).Msg("Fetched document")
			return taskflow.Values{KeyDocument: taskflow.String(doc)}, nil
		},
		taskflow.WithDescription("Normalize the prompt into a document"),
		taskflow.WithInputs(taskflow.Required("prompt", taskflow.Lit(taskflow.String(prompt)))),
		taskflow.WithRetries(0),
	)
}

// NewSummarizeTask keeps the first words of the document
func NewSummarizeTask() *taskflow.FuncTask {
	return taskflow.NewTask(
		TaskSummarize,
		func(ctx *taskflow.TaskContext, in taskflow.Inputs) (taskflow.Values, error) {
			doc, _ := in.Get("document").AsString()

			maxWords, err := maxWordsParam(ctx)
			if err != nil {
				return nil, err
			}

			words := strings.Fields(doc)
			summary := words
			if len(summary) > maxWords {
				summary = summary[:maxWords]
			}

			text := strings.Join(summary, " ")
			if len(summary) < len(words) {
				text += "..."
			}

			ctx.Logger.Info().
				Int("words", len(words)).
				Int("max_words", maxWords).
				Msg("Summarized document")

			return taskflow.Values{
				KeySummary: taskflow.String(text),
				KeyWords:   taskflow.Int(int64(len(words))),
			}, nil
		},
		taskflow.WithDescription("Summarize the document"),
		taskflow.WithInputs(taskflow.Required("document", taskflow.FromRef(TaskFetch+"."+KeyDocument))),
	)
}

// NewCategorizeTask assigns the document a category by keyword
func NewCategorizeTask() *taskflow.FuncTask {
	return taskflow.NewTask(
		TaskCategorize,
		func(ctx *taskflow.TaskContext, in taskflow.Inputs) (taskflow.Values, error) {
			doc, _ := in.Get("document").AsString()
			category := Categorize(doc)
			ctx.Logger.Info().Str("category", category).Msg("Categorized document")
			return taskflow.Values{KeyCategory: taskflow.String(category)}, nil
		},
		taskflow.WithDescription("Categorize the document"),
		taskflow.WithInputs(taskflow.Required("document", taskflow.FromRef(TaskFetch+"."+KeyDocument))),
	)
}

// NewReportTask combines the analysis into the final report. An empty title is left out.
func NewReportTask(title string) *taskflow.FuncTask {
	titleSrc := taskflow.Lit(taskflow.Null())
	if title != "" {
		titleSrc = taskflow.Lit(taskflow.String(title))
	}

	return taskflow.NewTask(
		TaskReport,
		func(ctx *taskflow.TaskContext, in taskflow.Inputs) (taskflow.Values, error) {
			summary, _ := in.Get("summary").AsString()
			category, _ := in.Get("category").AsString()

			report := fmt.Sprintf("[%s] %s", category, summary)
			if v, ok := in.Lookup("title").Get(); ok {
				t, _ := v.AsString()
				report = t + ": " + report
			}

			ctx.Logger.Info().Str("report", report).Msg("Built report")
			return taskflow.Values{KeyReport: taskflow.String(report)}, nil
		},
		taskflow.WithDescription("Build the report"),
		taskflow.WithInputs(
			taskflow.Required("summary", taskflow.FromRef(memberRef(TaskSummarize, KeySummary))),
			taskflow.Required("category", taskflow.FromRef(memberRef(TaskCategorize, KeyCategory))),
			taskflow.OptionalInput("title", titleSrc),
		),
	)
}

// Categorize picks the first category whose keywords appear in doc
func Categorize(doc string) string {
	lower := strings.ToLower(doc)
	for _, c := range categories {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	if strings.HasSuffix(strings.TrimSpace(doc), "?") {
		return CategoryQuestion
	}
	return CategoryGeneral
}

func memberRef(task, key string) string {
	return GroupAnalyze + "." + task + "." + key
}

func maxWordsParam(ctx *taskflow.TaskContext) (int, error) {
	req, err := taskflow.GetContext[agent.Request](ctx)
	if err != nil {
		return DefaultMaxWords, nil
	}

	raw, ok := req.Params[ParamMaxWords]
	if !ok {
		return DefaultMaxWords, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("parameter %s must be a positive integer, got %q", ParamMaxWords, raw)
	}
	return n, nil
}
