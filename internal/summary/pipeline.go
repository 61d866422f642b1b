// Package summary turns stored chat messages into natural-language summaries,
// chunking large message sets to stay inside the model's token limits and
// degrading to a transcript export when the model is unavailable.
package summary

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/telegram-summary-bot/internal/models"
)

// MarkerToken tags generated summaries. Messages containing it are filtered
// out of transcripts so summaries stored back into the chat never feed the
// next summarization run.
const MarkerToken = "#summary"

const (
	// maxChunkMessages caps how many messages a single model call sees.
	maxChunkMessages = 100
	// maxPromptTokens caps the estimated token cost of a direct-mode transcript.
	maxPromptTokens = 3000
	// chunkMaxTokens is the per-chunk output allowance in chunked mode.
	chunkMaxTokens = 2048
	// generationTemperature keeps summaries deterministic-leaning.
	generationTemperature = 0.3
)

// Completer is the language-model capability the pipeline consumes.
// Capacity-class failures must come back wrapped in models.ErrCapacity.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string, maxTokens int32, temperature float32) (string, error)
}

// Options control a single generation run.
type Options struct {
	MaxLength int    // target character budget for the summary text
	Language  string // ISO code keying the prompt table, English fallback
	Timezone  string // IANA zone for rendering message times

	// AllowExport enables the degraded transcript-export path on capacity
	// errors. On-demand callers set it; the scheduler leaves it off and
	// retries the job on its next tick instead.
	AllowExport bool
}

// Result is a finished generation: either summary text or, when the model was
// unavailable and export was allowed, a transcript artifact.
type Result struct {
	Text   string
	Export *ExportArtifact
}

// Pipeline generates summaries from message sets.
type Pipeline struct {
	llm           Completer
	exportDir     string
	linkTimecodes bool
	logger        zerolog.Logger
}

// NewPipeline creates a summary pipeline.
func NewPipeline(llm Completer, exportDir string, linkTimecodes bool, logger zerolog.Logger) *Pipeline {
	return &Pipeline{
		llm:           llm,
		exportDir:     exportDir,
		linkTimecodes: linkTimecodes,
		logger:        logger.With().Str("component", "summary_pipeline").Logger(),
	}
}

// Generate produces a summary of messages. Messages must arrive in ascending
// timestamp order. Returns models.ErrNoContent for empty or all-filtered
// input without touching the model; capacity failures either degrade to an
// export artifact (AllowExport) or propagate wrapped in models.ErrCapacity.
func (p *Pipeline) Generate(ctx context.Context, messages []models.Message, opts Options) (*Result, error) {
	if len(messages) == 0 {
		return nil, models.ErrNoContent
	}

	if opts.MaxLength <= 0 {
		opts.MaxLength = models.DefaultSummaryLength
	}
	loc := loadLocation(opts.Timezone)

	transcript := formatTranscript(messages, loc)
	if transcript == "" {
		return nil, models.ErrNoContent
	}

	var (
		text string
		err  error
	)
	if len(messages) > maxChunkMessages || estimateTokens(transcript) > maxPromptTokens {
		p.logger.Debug().
			Int("message_count", len(messages)).
			Int("estimated_tokens", estimateTokens(transcript)).
			Msg("Switching to chunked summarization")
		text, err = p.generateChunked(ctx, messages, loc, opts)
	} else {
		text, err = p.generateDirect(ctx, transcript, opts)
	}

	if err != nil {
		if errors.Is(err, models.ErrCapacity) && opts.AllowExport {
			p.logger.Warn().
				Err(err).
				Int("message_count", len(messages)).
				Msg("Model capacity exhausted, exporting transcript instead")
			artifact, expErr := p.exportTranscript(messages, loc)
			if expErr != nil {
				return nil, fmt.Errorf("failed to export transcript after capacity error: %w", expErr)
			}
			return &Result{Export: artifact}, nil
		}
		return nil, err
	}

	if p.linkTimecodes {
		text = LinkTimecodes(text, messages, loc)
	}

	return &Result{Text: text}, nil
}

// generateDirect summarizes the whole transcript in one model call.
func (p *Pipeline) generateDirect(ctx context.Context, transcript string, opts Options) (string, error) {
	prompts := promptsFor(opts.Language)
	user := fmt.Sprintf(prompts.Direct, transcript, opts.MaxLength, MarkerToken)

	text, err := p.llm.Complete(ctx, prompts.System, user, outputBudget(opts.MaxLength), generationTemperature)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// generateChunked partitions messages into contiguous ordered groups,
// summarizes each group independently, then merges the partial summaries in
// one synthesis call.
func (p *Pipeline) generateChunked(ctx context.Context, messages []models.Message, loc *time.Location, opts Options) (string, error) {
	prompts := promptsFor(opts.Language)
	chunks := chunkMessages(messages, maxChunkMessages)

	partials := make([]string, 0, len(chunks))
	for i, chunk := range chunks {
		transcript := formatTranscript(chunk, loc)
		if transcript == "" {
			continue
		}

		user := fmt.Sprintf(prompts.Chunk, i+1, len(chunks), transcript)
		text, err := p.llm.Complete(ctx, prompts.System, user, chunkMaxTokens, generationTemperature)
		if err != nil {
			return "", fmt.Errorf("chunk %d/%d: %w", i+1, len(chunks), err)
		}

		text = strings.TrimSpace(text)
		if text != "" {
			partials = append(partials, text)
		}
	}

	if len(partials) == 0 {
		return "", models.ErrNoContent
	}
	if len(partials) == 1 {
		return partials[0], nil
	}

	joined := strings.Join(partials, "\n\n---\n\n")
	user := fmt.Sprintf(prompts.Synthesis, joined, opts.MaxLength, MarkerToken)
	text, err := p.llm.Complete(ctx, prompts.System, user, outputBudget(opts.MaxLength), generationTemperature)
	if err != nil {
		return "", fmt.Errorf("synthesis of %d chunks: %w", len(partials), err)
	}
	return strings.TrimSpace(text), nil
}

// chunkMessages partitions messages into contiguous ordered groups of at most
// size. Concatenating the chunks in order reconstructs the input.
func chunkMessages(messages []models.Message, size int) [][]models.Message {
	if size <= 0 {
		size = maxChunkMessages
	}
	chunks := make([][]models.Message, 0, (len(messages)+size-1)/size)
	for start := 0; start < len(messages); start += size {
		end := start + size
		if end > len(messages) {
			end = len(messages)
		}
		chunks = append(chunks, messages[start:end])
	}
	return chunks
}

// formatTranscript renders messages as "[HH:MM] @name: text" lines in the
// chat's timezone, ascending time order. Messages with blank text and
// messages carrying the summary marker are dropped.
func formatTranscript(messages []models.Message, loc *time.Location) string {
	var b strings.Builder
	for _, msg := range messages {
		text := strings.TrimSpace(msg.Text)
		if text == "" || strings.Contains(text, MarkerToken) {
			continue
		}

		name := msg.DisplayName
		if name == "" {
			name = fmt.Sprintf("user%d", msg.SenderID)
		}

		clock := time.Unix(msg.Timestamp, 0).In(loc).Format("15:04")
		fmt.Fprintf(&b, "[%s] @%s: %s\n", clock, name, text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// estimateTokens is a deliberate rough heuristic, not a real tokenizer.
func estimateTokens(text string) int {
	return len(text) / 4
}

// outputBudget converts a character budget into a model token allowance,
// capped at the per-request ceiling.
func outputBudget(maxLength int) int32 {
	budget := maxLength + maxLength/2
	if budget > maxPromptTokens {
		budget = maxPromptTokens
	}
	return int32(budget)
}

func loadLocation(tz string) *time.Location {
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return time.UTC
	}
	return loc
}
