package summary

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/telegram-summary-bot/internal/models"
)

// ExportArtifact describes a transcript file written by the degraded path.
type ExportArtifact struct {
	Path         string
	MessageCount int
	Start        int64 // unix seconds, first message
	End          int64 // unix seconds, last message
	GeneratedAt  time.Time
}

// Caption renders the delivery note accompanying the artifact.
func (a *ExportArtifact) Caption() string {
	return fmt.Sprintf(
		"⚠️ The summarizer is temporarily unavailable, here is the raw transcript instead: %d messages, %s — %s.",
		a.MessageCount,
		time.Unix(a.Start, 0).UTC().Format("2006-01-02 15:04"),
		time.Unix(a.End, 0).UTC().Format("2006-01-02 15:04"),
	)
}

// exportTranscript writes the entire message set to a plain timestamped
// transcript file. File names carry a timestamp plus a short uuid, so two
// exports of identical input never collide or overwrite.
func (p *Pipeline) exportTranscript(messages []models.Message, loc *time.Location) (*ExportArtifact, error) {
	if err := os.MkdirAll(p.exportDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create export dir: %w", err)
	}

	now := time.Now()
	name := fmt.Sprintf("transcript_%s_%s.txt", now.Format("20060102_150405"), uuid.NewString()[:8])
	path := filepath.Join(p.exportDir, name)

	start := messages[0].Timestamp
	end := messages[len(messages)-1].Timestamp

	var b strings.Builder
	fmt.Fprintf(&b, "Chat transcript export\n")
	fmt.Fprintf(&b, "Generated: %s\n", now.In(loc).Format("2006-01-02 15:04:05 MST"))
	fmt.Fprintf(&b, "Messages:  %d\n", len(messages))
	fmt.Fprintf(&b, "Range:     %s — %s\n\n",
		time.Unix(start, 0).In(loc).Format("2006-01-02 15:04"),
		time.Unix(end, 0).In(loc).Format("2006-01-02 15:04"))

	for _, msg := range messages {
		name := msg.DisplayName
		if name == "" {
			name = fmt.Sprintf("user%d", msg.SenderID)
		}
		fmt.Fprintf(&b, "[%s] %s: %s\n",
			time.Unix(msg.Timestamp, 0).In(loc).Format("2006-01-02 15:04"),
			name,
			msg.Text)
	}

	if err := os.WriteFile(path, []byte(b.String()), 0o644); err != nil {
		return nil, fmt.Errorf("failed to write transcript file: %w", err)
	}

	p.logger.Info().
		Str("path", path).
		Int("message_count", len(messages)).
		Msg("Transcript exported")

	return &ExportArtifact{
		Path:         path,
		MessageCount: len(messages),
		Start:        start,
		End:          end,
		GeneratedAt:  now,
	}, nil
}
