package mapper

// GenAI and LangSmith semantic-convention keys recorded on spans.
// See https://opentelemetry.io/docs/specs/semconv/attributes-registry/gen-ai/
// and https://docs.smith.langchain.com/observability/how_to_guides/tracing/log_llm_trace
const (
	KeySpanKind       = "langsmith.span.kind"
	KeyRunName        = "langsmith.run_name"
	KeySessionName    = "langsmith.trace.session_name"
	KeyMetadataUserID = "langsmith.metadata.user_id"

	KeyOperationName = "gen_ai.operation.name"
	KeySystem        = "gen_ai.system"
	KeyAgentID       = "gen_ai.agent.id"
	KeyAgentAliasID  = "gen_ai.agent_alias.id"
	KeyAgentName     = "gen_ai.agent.name"
	KeySessionID     = "gen_ai.session_id"

	KeyRequestModel = "gen_ai.request.model"
	KeyTemperature  = "gen_ai.request.temperature"
	KeyTopK         = "gen_ai.request.top_k"
	KeyTopP         = "gen_ai.request.top_p"

	// Indexed prefixes: <prefix>.<n>.role / <prefix>.<n>.content.
	KeyPromptPrefix     = "gen_ai.prompt"
	KeyCompletionPrefix = "gen_ai.completion"

	// Fallbacks when the embedded document does not parse.
	KeyPromptContent     = "gen_ai.prompt.content"
	KeyCompletionContent = "gen_ai.completion.content"
	KeyCompletionRole    = "gen_ai.completion.role"

	KeyReasoning  = "gen_ai.reasoning"
	KeyStopReason = "gen_ai.response.stop_reason"

	KeyUsagePromptTokens     = "gen_ai.usage.prompt_tokens"
	KeyUsageCompletionTokens = "gen_ai.usage.completion_tokens"
	KeyUsageTotalTokens      = "gen_ai.usage.total_tokens"

	KeyToolName        = "gen_ai.tool.name"
	KeyToolActionGroup = "gen_ai.tool.action_group"
	KeyToolOutput      = "gen_ai.tool.output"

	KeyErrorMessage = "error.message"
	KeyErrorType    = "error.type"

	SystemBedrock        = "aws.bedrock"
	OperationInvokeAgent = "invoke_agent"
)
