// Copyright (c) 2026 dotandev
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package webhook

import (
	"fmt"
	"time"

	"github.com/dotandev/tzsubmit/internal/journal"
	"github.com/dotandev/tzsubmit/internal/tezos"
)

// Report statuses.
const (
	StatusInjected = "injected"
	StatusFailed   = "failed"
)

// Report summarises one submission attempt.
type Report struct {
	JournalID  string    `json:"journal_id,omitempty"`
	Source     string    `json:"source"`
	Network    string    `json:"network"`
	Status     string    `json:"status"`
	Stage      string    `json:"stage"`
	OpHash     string    `json:"op_hash,omitempty"`
	Operations int       `json:"operations"`
	Fee        string    `json:"fee"`
	Burn       string    `json:"burn"`
	Gas        int64     `json:"gas"`
	Storage    int64     `json:"storage"`
	ErrorKind  string    `json:"error_kind,omitempty"`
	Error      string    `json:"error,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// ReportFromEntry builds a report from a journal entry. Amounts are in tez.
func ReportFromEntry(e *journal.Entry) Report {
	status := StatusFailed
	if e.Succeeded() {
		status = StatusInjected
	}
	return Report{
		JournalID:  e.ID,
		Source:     e.Source,
		Network:    e.Network,
		Status:     status,
		Stage:      e.Stage,
		OpHash:     e.OpHash,
		Operations: e.Operations,
		Fee:        tezos.FormatTez(tezos.Mutez(e.Fee)),
		Burn:       tezos.FormatTez(tezos.Mutez(e.Burn)),
		Gas:        e.Gas,
		Storage:    e.Storage,
		ErrorKind:  e.ErrorKind,
		Error:      e.Error,
		Timestamp:  e.CreatedAt,
	}
}

func (r Report) title() string {
	if r.Status == StatusInjected {
		return "Operation injected"
	}
	return "Submission failed at stage " + r.Stage
}

// SlackMessage is a Slack incoming-webhook payload.
type SlackMessage struct {
	Blocks []any  `json:"blocks"`
	Text   string `json:"text"`
}

// DiscordMessage is a Discord webhook payload.
type DiscordMessage struct {
	Username string         `json:"username"`
	Content  string         `json:"content"`
	Embeds   []DiscordEmbed `json:"embeds"`
}

type DiscordEmbed struct {
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Color       int                 `json:"color"`
	Fields      []DiscordEmbedField `json:"fields"`
	Timestamp   string              `json:"timestamp"`
	Footer      DiscordEmbedFooter  `json:"footer"`
}

type DiscordEmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

type DiscordEmbedFooter struct {
	Text string `json:"text"`
}

func mrkdwn(text string) map[string]any {
	return map[string]any{"type": "mrkdwn", "text": text}
}

// FormatSlackMessage renders r as Slack blocks.
func FormatSlackMessage(r Report) SlackMessage {
	mark := ":x:"
	if r.Status == StatusInjected {
		mark = ":white_check_mark:"
	}

	blocks := []any{
		map[string]any{
			"type": "header",
			"text": map[string]any{"type": "plain_text", "text": r.title()},
		},
		map[string]any{
			"type": "section",
			"text": mrkdwn(fmt.Sprintf("%s *Network:* %s\n*Source:* `%s`\n*Time:* %s",
				mark, r.Network, r.Source, r.Timestamp.UTC().Format("2006-01-02 15:04:05 MST"))),
		},
		map[string]any{
			"type": "section",
			"fields": []any{
				mrkdwn(fmt.Sprintf("*Fee:*\n%s tez", r.Fee)),
				mrkdwn(fmt.Sprintf("*Burn:*\n%s tez", r.Burn)),
				mrkdwn(fmt.Sprintf("*Gas:*\n%d", r.Gas)),
				mrkdwn(fmt.Sprintf("*Operations:*\n%d", r.Operations)),
			},
		},
	}
	if r.OpHash != "" {
		blocks = append(blocks, map[string]any{
			"type": "section",
			"text": mrkdwn(fmt.Sprintf("*Operation hash:*\n`%s`", r.OpHash)),
		})
	}
	if r.Error != "" {
		text := fmt.Sprintf("*Error:*\n```%s```", truncate(r.Error, 1500))
		if r.ErrorKind != "" {
			text = fmt.Sprintf("*Error (%s):*\n```%s```", r.ErrorKind, truncate(r.Error, 1500))
		}
		blocks = append(blocks, map[string]any{"type": "section", "text": mrkdwn(text)})
	}
	if r.JournalID != "" {
		blocks = append(blocks, map[string]any{
			"type":     "context",
			"elements": []any{mrkdwn("journal " + r.JournalID)},
		})
	}

	return SlackMessage{
		Blocks: blocks,
		Text:   fmt.Sprintf("%s on %s", r.title(), r.Network),
	}
}

// FormatDiscordMessage renders r as a single Discord embed.
func FormatDiscordMessage(r Report) DiscordMessage {
	color := 0xE74C3C
	if r.Status == StatusInjected {
		color = 0x2ECC71
	}

	fields := []DiscordEmbedField{
		{Name: "Network", Value: r.Network, Inline: true},
		{Name: "Stage", Value: r.Stage, Inline: true},
		{Name: "Operations", Value: fmt.Sprintf("%d", r.Operations), Inline: true},
		{Name: "Fee", Value: r.Fee + " tez", Inline: true},
		{Name: "Burn", Value: r.Burn + " tez", Inline: true},
		{Name: "Gas", Value: fmt.Sprintf("%d", r.Gas), Inline: true},
	}
	if r.OpHash != "" {
		fields = append(fields, DiscordEmbedField{Name: "Operation hash", Value: "`" + r.OpHash + "`"})
	}
	if r.Error != "" {
		name := "Error"
		if r.ErrorKind != "" {
			name = "Error (" + r.ErrorKind + ")"
		}
		fields = append(fields, DiscordEmbedField{Name: name, Value: truncate(r.Error, 1000)})
	}

	footer := "tzsubmit"
	if r.JournalID != "" {
		footer += " | journal " + r.JournalID
	}

	return DiscordMessage{
		Username: "tzsubmit",
		Embeds: []DiscordEmbed{{
			Title:       r.title(),
			Description: "Source `" + r.Source + "`",
			Color:       color,
			Fields:      fields,
			Timestamp:   r.Timestamp.UTC().Format(time.RFC3339),
			Footer:      DiscordEmbedFooter{Text: footer},
		}},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
