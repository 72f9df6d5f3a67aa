package pipeline

// Output keys published by each task
const (
	KeyDocument = "document"
	KeySummary  = "summary"
	KeyWords    = "words"
	KeyCategory = "category"
	KeyReport   = "report"
)

// Step and group names; report references the group members by qualified name
const (
	TaskFetch      = "fetch"
	GroupAnalyze   = "analyze"
	TaskSummarize  = "summarize"
	TaskCategorize = "categorize"
	TaskReport     = "report"
)

// Request parameters understood by the pipeline
const (
	// ParamMaxWords caps the summary length in words
	ParamMaxWords = "max_words"
	// ParamTitle prefixes the report
	ParamTitle = "title"
)

// DefaultMaxWords is the summary length when ParamMaxWords is not set
const DefaultMaxWords = 12

// categories maps a category to the keywords that select it, checked in order
var categories = []struct {
	name     string
	keywords []string
}{
	{"incident", []string{"error", "failure", "outage", "crash", "down"}},
	{"billing", []string{"invoice", "payment", "refund", "charge", "price"}},
	{"feature", []string{"feature", "support", "add", "improve", "request"}},
}

// CategoryQuestion is used when no keyword matches and the document asks something
const CategoryQuestion = "question"

// CategoryGeneral is the fallback category
const CategoryGeneral = "general"
