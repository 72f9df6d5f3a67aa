package builder

// WorkflowOption is a functional option for configuring a builder
type WorkflowOption func(*WorkflowBuilder)

// WithDescription sets the workflow description
func WithDescription(description string) WorkflowOption {
	return func(b *WorkflowBuilder) {
		b.WithDescription(description)
	}
}

// WithID fixes the workflow instance ID
func WithID(id string) WorkflowOption {
	return func(b *WorkflowBuilder) {
		b.WithID(id)
	}
}

// WithContext sets the custom context handed to every task
func WithContext(ctx any) WorkflowOption {
	return func(b *WorkflowBuilder) {
		b.WithContext(ctx)
	}
}

// ApplyOptions applies a list of options to a builder
func ApplyOptions(b *WorkflowBuilder, opts ...WorkflowOption) {
	for _, opt := range opts {
		opt(b)
	}
}
