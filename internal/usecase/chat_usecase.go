package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/iho/ledgerbot/internal/assistant"
	"github.com/iho/ledgerbot/internal/domain"
)

// outcomeAnswered labels turns answered by the Assistant.
const outcomeAnswered = "assistant_answer"

// AccountQueries is the read side the chat router needs.
type AccountQueries interface {
	GetAccount(ctx context.Context, id string) (*domain.Account, error)
	RecentEntries(ctx context.Context, id string, limit int) ([]*domain.LedgerEntry, error)
}

// TransferService executes transfers on behalf of the chat router.
type TransferService interface {
	Transfer(ctx context.Context, input TransferInput) (*domain.Transfer, error)
}

// ChatUseCase routes one chat message to a banking operation or to the
// Assistant and renders the reply.
type ChatUseCase struct {
	accounts  AccountQueries
	transfers TransferService
	assistant Assistant
	metrics   MetricsRecorder
	logger    zerolog.Logger
}

// NewChatUseCase creates a new ChatUseCase. assistant and metrics may be nil.
func NewChatUseCase(
	accounts AccountQueries,
	transfers TransferService,
	assistant Assistant,
	metrics MetricsRecorder,
	logger zerolog.Logger,
) *ChatUseCase {
	return &ChatUseCase{
		accounts:  accounts,
		transfers: transfers,
		assistant: assistant,
		metrics:   metrics,
		logger:    logger,
	}
}

// ChatInput is one user message. Sender is the acting account identifier.
type ChatInput struct {
	Sender  string
	Content string
}

// ChatReply is the rendered answer for a turn.
type ChatReply struct {
	Content    string
	Language   assistant.Language
	Intent     assistant.Intent
	Outcome    string
	TransferID string
}

// Message wraps the reply in the bot envelope.
func (r ChatReply) Message() domain.ChatMessage {
	return domain.NewBotMessage(r.Content)
}

// turn carries the per-message state through routing.
type turn struct {
	input  ChatInput
	lang   assistant.Language
	intent assistant.Intent
}

// Reply answers in. It never fails: every error becomes a templated reply.
func (uc *ChatUseCase) Reply(ctx context.Context, in ChatInput) ChatReply {
	t := turn{
		input:  in,
		lang:   assistant.DetectLanguage(in.Content),
		intent: assistant.Classify(assistant.Normalize(in.Content)),
	}

	reply := uc.route(ctx, t)
	reply.Language = t.lang
	reply.Intent = t.intent

	if uc.metrics != nil {
		uc.metrics.RecordChatTurn(string(reply.Intent), reply.Outcome)
	}

	uc.logger.Debug().
		Str("intent", string(reply.Intent)).
		Str("outcome", reply.Outcome).
		Str("lang", string(reply.Language)).
		Msg("chat turn")

	return reply
}

func (uc *ChatUseCase) route(ctx context.Context, t turn) ChatReply {
	switch t.intent {
	case assistant.IntentEmpty:
		return uc.fixed(t, assistant.OutcomeEmpty)
	case assistant.IntentGreeting:
		return uc.fixed(t, assistant.OutcomeGreeting)
	case assistant.IntentOutOfScope:
		return uc.fixed(t, assistant.OutcomeOutOfScope)
	case assistant.IntentFormatHelp:
		return uc.fixed(t, assistant.OutcomeFormatHelp)
	case assistant.IntentTransferHowTo:
		return uc.fixed(t, assistant.OutcomeTransferHowTo)
	case assistant.IntentBalance, assistant.IntentHistory, assistant.IntentTransfer:
		return uc.accountTurn(ctx, t)
	default:
		return uc.fallback(ctx, t)
	}
}

func (uc *ChatUseCase) accountTurn(ctx context.Context, t turn) ChatReply {
	sender := strings.TrimSpace(t.input.Sender)
	if sender == "" {
		return uc.fixed(t, assistant.OutcomeMissingSender)
	}
	if !domain.IsValidIdentifier(sender) {
		return uc.fixed(t, assistant.OutcomeInvalidIdentifier)
	}

	account, err := uc.accounts.GetAccount(ctx, sender)
	if err != nil {
		if errors.Is(err, domain.ErrAccountNotFound) {
			return uc.fixed(t, assistant.OutcomeAccountNotFound)
		}
		return uc.serviceError(t, err, "get account")
	}

	switch t.intent {
	case assistant.IntentBalance:
		return uc.render(t, assistant.Outcome{Kind: assistant.OutcomeBalance, Balance: account.Balance})
	case assistant.IntentHistory:
		return uc.history(ctx, t, account)
	default:
		return uc.transfer(ctx, t, account)
	}
}

func (uc *ChatUseCase) history(ctx context.Context, t turn, account *domain.Account) ChatReply {
	entries, err := uc.accounts.RecentEntries(ctx, account.ID, DefaultRecentEntries)
	if err != nil {
		return uc.serviceError(t, err, "recent entries")
	}
	if len(entries) == 0 {
		return uc.fixed(t, assistant.OutcomeHistoryEmpty)
	}
	return uc.render(t, assistant.Outcome{Kind: assistant.OutcomeHistory, Entries: entries})
}

func (uc *ChatUseCase) transfer(ctx context.Context, t turn, account *domain.Account) ChatReply {
	raw := t.input.Content

	amount, ok := assistant.ExtractAmount(assistant.MaskIdentifiers(raw))
	if !ok || !amount.IsPositive() {
		return uc.fixed(t, assistant.OutcomeMissingAmount)
	}

	destination, ok := assistant.ExtractIdentifier(raw)
	if !ok {
		if assistant.HasMalformedIdentifier(raw) {
			return uc.fixed(t, assistant.OutcomeInvalidIdentifier)
		}
		return uc.fixed(t, assistant.OutcomeMissingDestination)
	}

	result, err := uc.transfers.Transfer(ctx, TransferInput{
		SourceID:      account.ID,
		DestinationID: destination,
		Amount:        amount,
	})
	if err != nil {
		if kind, ok := transferFailure(err); ok {
			return uc.fixed(t, kind)
		}
		return uc.serviceError(t, err, "transfer")
	}

	reply := uc.render(t, assistant.Outcome{
		Kind:        assistant.OutcomeTransferSuccess,
		Amount:      amount,
		Balance:     result.SourceBalance,
		Destination: destination,
	})
	reply.TransferID = result.ID
	return reply
}

// transferFailure maps engine rule violations to reply templates.
func transferFailure(err error) (assistant.OutcomeKind, bool) {
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return assistant.OutcomeMissingAmount, true
	case errors.Is(err, domain.ErrInvalidIdentifier):
		return assistant.OutcomeInvalidIdentifier, true
	case errors.Is(err, domain.ErrSameAccount):
		return assistant.OutcomeSameAccount, true
	case errors.Is(err, domain.ErrAccountNotFound):
		return assistant.OutcomeAccountNotFound, true
	case errors.Is(err, domain.ErrInactiveAccount):
		return assistant.OutcomeInactiveAccount, true
	case errors.Is(err, domain.ErrInsufficientBalance):
		return assistant.OutcomeInsufficientBalance, true
	default:
		return "", false
	}
}

func (uc *ChatUseCase) fallback(ctx context.Context, t turn) ChatReply {
	if uc.assistant == nil {
		return uc.fixed(t, assistant.OutcomeFallbackApology)
	}

	text, err := uc.assistant.Ask(ctx, t.input.Content)
	if err != nil {
		uc.logger.Error().Err(err).Msg("assistant request failed")
		return uc.fixed(t, assistant.OutcomeFallbackApology)
	}

	text = assistant.TrimReply(text, assistant.WantsStepByStep(t.input.Content))
	if text == "" {
		return uc.fixed(t, assistant.OutcomeFallbackApology)
	}

	return ChatReply{Content: text, Outcome: outcomeAnswered}
}

func (uc *ChatUseCase) serviceError(t turn, err error, op string) ChatReply {
	uc.logger.Error().Err(err).Str("op", op).Str("intent", string(t.intent)).Msg("chat turn failed")
	return uc.fixed(t, assistant.OutcomeServiceError)
}

func (uc *ChatUseCase) fixed(t turn, kind assistant.OutcomeKind) ChatReply {
	return uc.render(t, assistant.Outcome{Kind: kind})
}

func (uc *ChatUseCase) render(t turn, o assistant.Outcome) ChatReply {
	return ChatReply{
		Content: assistant.Compose(t.lang, o),
		Outcome: string(o.Kind),
	}
}
