package bedrockagent

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/PeriniM/langsmith-bedrock-agents/internal/model"
)

// convertTracePart lowers the SDK's union-typed trace event into the wire
// model. Trace kinds outside routing and orchestration return nil.
func convertTracePart(tp *types.TracePart) *model.TracePart {
	out := &model.TracePart{
		AgentID:      aws.ToString(tp.AgentId),
		AgentAliasID: aws.ToString(tp.AgentAliasId),
		SessionID:    aws.ToString(tp.SessionId),
	}
	switch t := tp.Trace.(type) {
	case *types.TraceMemberRoutingClassifierTrace:
		step := convertRoutingStep(t.Value)
		if step == nil {
			return nil
		}
		out.Trace.RoutingClassifier = step
	case *types.TraceMemberOrchestrationTrace:
		step := convertOrchestrationStep(t.Value)
		if step == nil {
			return nil
		}
		out.Trace.Orchestration = step
	default:
		return nil
	}
	return out
}

func convertOrchestrationStep(tr types.OrchestrationTrace) *model.TraceStep {
	switch t := tr.(type) {
	case *types.OrchestrationTraceMemberModelInvocationInput:
		return &model.TraceStep{ModelInvocationInput: convertModelInput(&t.Value)}
	case *types.OrchestrationTraceMemberModelInvocationOutput:
		return &model.TraceStep{ModelInvocationOutput: &model.ModelInvocationOutput{
			TraceID:     aws.ToString(t.Value.TraceId),
			Metadata:    convertMetadata(t.Value.Metadata),
			RawResponse: convertRawResponse(t.Value.RawResponse),
		}}
	case *types.OrchestrationTraceMemberRationale:
		return &model.TraceStep{Rationale: &model.Rationale{
			Text:    aws.ToString(t.Value.Text),
			TraceID: aws.ToString(t.Value.TraceId),
		}}
	case *types.OrchestrationTraceMemberInvocationInput:
		return &model.TraceStep{InvocationInput: convertInvocationInput(&t.Value)}
	case *types.OrchestrationTraceMemberObservation:
		return &model.TraceStep{Observation: convertObservation(&t.Value)}
	}
	return nil
}

func convertRoutingStep(tr types.RoutingClassifierTrace) *model.TraceStep {
	switch t := tr.(type) {
	case *types.RoutingClassifierTraceMemberModelInvocationInput:
		return &model.TraceStep{ModelInvocationInput: convertModelInput(&t.Value)}
	case *types.RoutingClassifierTraceMemberModelInvocationOutput:
		return &model.TraceStep{ModelInvocationOutput: &model.ModelInvocationOutput{
			TraceID:     aws.ToString(t.Value.TraceId),
			Metadata:    convertMetadata(t.Value.Metadata),
			RawResponse: convertRawResponse(t.Value.RawResponse),
		}}
	case *types.RoutingClassifierTraceMemberInvocationInput:
		return &model.TraceStep{InvocationInput: convertInvocationInput(&t.Value)}
	case *types.RoutingClassifierTraceMemberObservation:
		return &model.TraceStep{Observation: convertObservation(&t.Value)}
	}
	return nil
}

func convertModelInput(in *types.ModelInvocationInput) *model.ModelInvocationInput {
	out := &model.ModelInvocationInput{
		FoundationModel: aws.ToString(in.FoundationModel),
		Text:            aws.ToString(in.Text),
		TraceID:         aws.ToString(in.TraceId),
	}
	if ic := in.InferenceConfiguration; ic != nil {
		out.InferenceConfiguration = &model.InferenceConfiguration{
			Temperature: float64(aws.ToFloat32(ic.Temperature)),
			TopK:        float64(aws.ToInt32(ic.TopK)),
			TopP:        float64(aws.ToFloat32(ic.TopP)),
		}
	}
	return out
}

func convertMetadata(md *types.Metadata) *model.Metadata {
	if md == nil || md.Usage == nil {
		return nil
	}
	return &model.Metadata{Usage: &model.Usage{
		InputTokens:  int64(aws.ToInt32(md.Usage.InputTokens)),
		OutputTokens: int64(aws.ToInt32(md.Usage.OutputTokens)),
	}}
}

func convertRawResponse(rr *types.RawResponse) *model.RawResponse {
	if rr == nil {
		return nil
	}
	return &model.RawResponse{Content: aws.ToString(rr.Content)}
}

func convertInvocationInput(in *types.InvocationInput) *model.InvocationInput {
	out := &model.InvocationInput{
		InvocationType: string(in.InvocationType),
		TraceID:        aws.ToString(in.TraceId),
	}
	if ag := in.ActionGroupInvocationInput; ag != nil {
		conv := &model.ActionGroupInvocationInput{
			ActionGroupName: aws.ToString(ag.ActionGroupName),
			Function:        aws.ToString(ag.Function),
			APIPath:         aws.ToString(ag.ApiPath),
			Verb:            aws.ToString(ag.Verb),
		}
		for _, p := range ag.Parameters {
			conv.Parameters = append(conv.Parameters, model.Parameter{
				Name:  aws.ToString(p.Name),
				Type:  aws.ToString(p.Type),
				Value: aws.ToString(p.Value),
			})
		}
		out.ActionGroupInvocationInput = conv
	}
	return out
}

func convertObservation(in *types.Observation) *model.Observation {
	out := &model.Observation{
		Type:    string(in.Type),
		TraceID: aws.ToString(in.TraceId),
	}
	if fr := in.FinalResponse; fr != nil {
		out.FinalResponse = &model.FinalResponse{Text: aws.ToString(fr.Text)}
	}
	if ao := in.ActionGroupInvocationOutput; ao != nil {
		out.ActionGroupInvocationOutput = &model.ActionGroupInvocationOutput{
			Text: aws.ToString(ao.Text),
		}
	}
	if co := in.AgentCollaboratorInvocationOutput; co != nil {
		out.AgentCollaboratorInvocationOutput = &model.AgentCollaboratorInvocationOutput{
			AgentCollaboratorName:     aws.ToString(co.AgentCollaboratorName),
			AgentCollaboratorAliasARN: aws.ToString(co.AgentCollaboratorAliasArn),
		}
	}
	return out
}
