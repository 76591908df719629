package contextkey

type ctxKey string

func (k ctxKey) String() string { return "langsmith-bedrock-agents/" + string(k) }

const (
	ProjectKey ctxKey = "project"
	APIKeyKey  ctxKey = "apiKey"
)
