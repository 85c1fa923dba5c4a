package notification

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/lucperkins/rek"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"go.uber.org/ratelimit"

	"github.com/fsaudit/fsaudit/pkg/comparison"
	"github.com/fsaudit/fsaudit/pkg/config"
	"github.com/fsaudit/fsaudit/pkg/duplicates"
	"github.com/fsaudit/fsaudit/pkg/httputils"
)

const (
	maxEmbedsPerMessage = 10
	maxCharactersPerMsg = 6000

	// hardcoded limit of fields to avoid hammering the api
	maxTotalFields = 250
)

type DiscordMessage struct {
	Content interface{}    `json:"content"`
	Embeds  []DiscordEmbed `json:"embeds,omitempty"`
}

type DiscordEmbed struct {
	Title       string               `json:"title"`
	Description string               `json:"description"`
	Color       int                  `json:"color"`
	Fields      []DiscordEmbedsField `json:"fields,omitempty"`
	Footer      DiscordEmbedsFooter  `json:"footer,omitempty"`
	Timestamp   time.Time            `json:"timestamp"`
}

type DiscordEmbedsFooter struct {
	Text string `json:"text"`
}

type DiscordEmbedsField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline,omitempty"`
}

type EmbedColors int

const (
	LIGHT_BLUE EmbedColors = 0x58b9ff
	RED        EmbedColors = 0xed4245
	GREEN      EmbedColors = 0x57f287
	GRAY       EmbedColors = 0x99aab5
)

type discordSender struct {
	log    *logrus.Entry
	config config.NotificationsConfig

	httpClient *http.Client
}

func (d *discordSender) Name() string {
	return "discord"
}

func NewDiscordSender(log *logrus.Entry, config config.NotificationsConfig) Sender {
	l := log.WithField("sender", "discord")
	return &discordSender{
		log:        l,
		config:     config,
		httpClient: httputils.NewRetryableHttpClient(30*time.Second, ratelimit.New(1, ratelimit.WithoutSlack), l),
	}
}

// Calculate the actual JSON size of an embed
func (d *discordSender) calculateEmbedSize(embed DiscordEmbed) (int, error) {
	jsonData, err := json.Marshal(embed)
	if err != nil {
		return 0, err
	}
	return len(jsonData), nil
}

func (d *discordSender) Send(title string, description string, runTime time.Duration, fields []Field) error {
	var (
		allEmbeds   []DiscordEmbed
		totalFields = len(fields)
		timestamp   = time.Now()

		batches      [][]DiscordEmbed
		currentBatch []DiscordEmbed
		currentChars int
	)

	// if the config setting "skip_empty_run" is set to true, and there are no fields,
	// skip sending the message entirely.
	if totalFields == 0 && d.config.SkipEmptyRun {
		return nil
	}

	rt := runTime.Truncate(time.Millisecond).String()

	// only send a summary embed if no fields are present, there are more fields than allowed,
	// or the config setting "detailed" is set to false
	if totalFields == 0 || totalFields > maxTotalFields || !d.config.Detailed {
		allEmbeds = append(allEmbeds, DiscordEmbed{
			Title:       title,
			Description: description,
			Color:       int(LIGHT_BLUE),
			Footer: DiscordEmbedsFooter{
				Text: d.buildFooter(0, totalFields, rt),
			},
			Timestamp: timestamp,
		})
	} else {
		// Create one embed per reported item using the existing field data
		for i, field := range fields {
			embed := DiscordEmbed{
				Title:  title,
				Color:  int(LIGHT_BLUE),
				Fields: d.parseFieldValueToInlineFields(field.Value),
				Footer: DiscordEmbedsFooter{
					Text: d.buildFooter(i+1, totalFields, rt),
				},
				Timestamp: timestamp,
			}

			// Only add description if field name is not empty
			if field.Name != "" {
				embed.Description = fmt.Sprintf("**%s**", field.Name)
			}

			allEmbeds = append(allEmbeds, embed)
		}
		allEmbeds = append(allEmbeds, DiscordEmbed{
			Title:       fmt.Sprintf("%s - Summary", title),
			Description: description,
			Color:       int(LIGHT_BLUE),
			Footer: DiscordEmbedsFooter{
				Text: d.buildFooter(0, 0, rt),
			},
			Timestamp: timestamp,
		})
	}

	// Batch embeds for messages (max 10 embeds per message)
	flush := func() {
		if len(currentBatch) == 0 {
			return
		}
		batches = append(batches, currentBatch)
		currentBatch = nil
		currentChars = 0
	}

	for _, e := range allEmbeds {
		eSize, err := d.calculateEmbedSize(e)
		if err != nil {
			return errors.Wrap(err, "failed to calculate embed size for batching")
		}

		// If adding this embed breaks either the embed-count or char limit, flush first
		if len(currentBatch) >= maxEmbedsPerMessage || currentChars+eSize > maxCharactersPerMsg {
			flush()
		}

		currentBatch = append(currentBatch, e)
		currentChars += eSize
	}
	flush()

	totalMsgs := len(batches)

	for i, batch := range batches {
		msg := DiscordMessage{
			Content: nil,
			Embeds:  batch,
		}
		if sendErr := d.sendRequest(msg); sendErr != nil {
			return errors.Wrap(sendErr, "failed to send a message chunk to Discord")
		}

		d.log.Debugf("Sent Discord message %d/%d (%d embeds).", i+1, totalMsgs, len(batch))
	}

	d.log.Debugf("All %d Discord messages sent successfully.", totalMsgs)
	return nil
}

func (d *discordSender) CanSend() bool {
	return d.config.Service.Discord != ""
}

func (d *discordSender) sendRequest(msg DiscordMessage) error {
	res, err := rek.Post(d.config.Service.Discord, rek.Json(msg), rek.Client(d.httpClient))
	if err != nil {
		return errors.Wrap(err, "client request error")
	}

	d.log.Tracef("Discord response status: %d", res.StatusCode())

	if res.StatusCode() != http.StatusOK && res.StatusCode() != http.StatusNoContent {
		body, readErr := res.Text()
		if readErr != nil {
			return errors.Wrap(readErr, "could not read body")
		}

		return errors.Errorf("unexpected status: %v body: %v", res.StatusCode(), body)
	}

	d.log.Debug("Notification successfully sent to discord")
	return nil
}

// BuildField constructs a Field based on the provided action and build options.
func (d *discordSender) BuildField(action Action, opt BuildOptions) Field {
	switch action {
	case ActionDrift:
		return d.buildDriftField(opt.Outcome)
	case ActionDuplicate:
		return d.buildDuplicateField(opt.Group)
	}

	return Field{}
}

func (d *discordSender) buildDriftField(outcome comparison.Outcome) Field {
	var inlineFields []DiscordEmbedsField

	presence := func(present bool) string {
		if present {
			return "present"
		}
		return "missing"
	}

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Left",
		Value:  presence(outcome.InLeft),
		Inline: true,
	})
	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Right",
		Value:  presence(outcome.InRight),
		Inline: true,
	})

	if outcome.InLeft && outcome.InRight {
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Size",
			Value:  outcome.SizeSame.String(),
			Inline: true,
		})
		inlineFields = append(inlineFields, DiscordEmbedsField{
			Name:   "Content",
			Value:  outcome.ContentSame.String(),
			Inline: true,
		})
	}

	// Serialize to JSON to store in the field value
	jsonData, _ := json.Marshal(inlineFields)

	return Field{
		Name:  outcome.RelPath,
		Value: string(jsonData),
	}
}

func (d *discordSender) buildDuplicateField(group duplicates.Group) Field {
	var inlineFields []DiscordEmbedsField

	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Copies",
		Value:  fmt.Sprintf("%d", group.Count()),
		Inline: true,
	})
	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Size",
		Value:  humanize.IBytes(group.Size),
		Inline: true,
	})
	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Wasted",
		Value:  humanize.IBytes(group.Wasted),
		Inline: true,
	})

	paths := make([]string, 0, len(group.Files))
	for _, f := range group.Files {
		paths = append(paths, f.AbsPath)
	}
	inlineFields = append(inlineFields, DiscordEmbedsField{
		Name:   "Paths",
		Value:  strings.Join(paths, "\n"),
		Inline: false,
	})

	// Serialize to JSON to store in the field value
	jsonData, _ := json.Marshal(inlineFields)

	digest := group.Digest
	if len(digest) > 12 {
		digest = digest[:12]
	}

	return Field{
		Name:  fmt.Sprintf("%d x %s (%s)", group.Count(), humanize.IBytes(group.Size), digest),
		Value: string(jsonData),
	}
}

// parseFieldValueToInlineFields restores the inline fields stored as JSON in a field value.
func (d *discordSender) parseFieldValueToInlineFields(value string) []DiscordEmbedsField {
	var fields []DiscordEmbedsField

	if err := json.Unmarshal([]byte(value), &fields); err != nil {
		// Log error but return empty fields rather than fallback
		d.log.WithError(err).Error("Failed to parse field value as JSON")
		return []DiscordEmbedsField{}
	}

	return fields
}

func (d *discordSender) buildFooter(progress int, totalFields int, runTime string) string {
	if totalFields == 0 {
		return fmt.Sprintf("Started: %s ago", runTime)
	}

	return fmt.Sprintf("Progress: %d/%d | Started: %s ago", progress, totalFields, runTime)
}
