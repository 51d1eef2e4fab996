package chat

import (
	"errors"

	"github.com/yungbote/replygen-backend/internal/llm"
)

const (
	openAIKeyText = "(You need to enter a valid API key for OpenAI to use GPT-3.5 or GPT-4. Click your Profile in the bottom left and then Settings. You will find OpenAI Key instructions.)"

	anthropicKeyText = "(You need to enter a valid API key for Anthropic to use Claude. Click your Profile in the bottom left and then Settings. You will find Anthropic Key instructions.)"

	blankResponseText = "(Received a blank response. It's possible your API key is invalid, has expired, or the AI servers may be experiencing trouble. Try again or ensure your API key is valid. You can change your API key by clicking your Profile in the bottom left and then settings.)"

	connectionErrorPrefix = "I experienced a connection error. "

	unexpectedProblemText = "(I ran into an unexpected problem generating this reply. Try again in a moment.)"
)

// Disposition is how a generation run ended.
type Disposition string

const (
	DispositionSuccess                 Disposition = "success"
	DispositionCancelled               Disposition = "cancelled"
	DispositionUnconfiguredCredentials Disposition = "unconfigured_credentials"
	DispositionRateLimited             Disposition = "rate_limited"
	DispositionTransport               Disposition = "transport_failure"
	DispositionParse                   Disposition = "parse_failure"
	DispositionUnclassified            Disposition = "unclassified"
)

func quotaText(service, billingURL string) string {
	return "(Received a quota error. Your API key is probably valid but you may need to adding billing details. You are using " +
		service + " so go here " + billingURL +
		" and add a credit card, or if you already have one review your billing plan.)"
}

func credentialsText(spec llm.BackendSpec) string {
	if spec.Driver == llm.DriverAnthropic {
		return anthropicKeyText
	}
	return openAIKeyText
}

// classifyFailure turns a stream error into the disposition and the text the
// message is finalized with. Partial content is replaced, not kept.
func classifyFailure(err error, spec llm.BackendSpec) (Disposition, string) {
	switch llm.KindOf(err) {
	case llm.KindUnconfiguredCredentials:
		return DispositionUnconfiguredCredentials, credentialsText(spec)
	case llm.KindRateLimited:
		return DispositionRateLimited, quotaText(spec.Name, spec.BillingURL)
	case llm.KindTransport:
		return DispositionTransport, connectionErrorPrefix + err.Error()
	case llm.KindParse:
		return DispositionParse, blankResponseText
	}
	if llm.IsTransport(err) {
		return DispositionTransport, connectionErrorPrefix + err.Error()
	}
	return DispositionUnclassified, unexpectedProblemText
}

func isHandledFailure(d Disposition) bool {
	switch d {
	case DispositionUnconfiguredCredentials, DispositionRateLimited, DispositionTransport, DispositionParse:
		return true
	}
	return false
}

var errGenerationCancelled = errors.New("generation superseded or cancelled")
