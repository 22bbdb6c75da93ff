package service

import (
	"context"
	"math/rand"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/respondaai/automation-server-go/internal/config"
	"github.com/respondaai/automation-server-go/internal/gateway"
)

// Pacer delivers a generated reply as one or more messages with
// human-feeling delays between parts.
type Pacer struct {
	sender gateway.Sender
	sleep  func(time.Duration)
	jitter func() time.Duration
}

func NewPacer(sender gateway.Sender) *Pacer {
	return &Pacer{
		sender: sender,
		sleep:  time.Sleep,
		jitter: func() time.Duration {
			return time.Duration(rand.Int63n(int64(config.PacerMaxJitter)))
		},
	}
}

// Deliver splits text into parts and sends them in order. record is called
// after each successful send so the caller can persist the outbound
// message; a record failure is logged but does not stop delivery.
func (p *Pacer) Deliver(ctx context.Context, instance, phone, text string, record func(part string) error) error {
	parts := SplitReply(text)
	for i, part := range parts {
		if i > 0 {
			delay := partDelay(len(parts[i-1])) + p.jitter()
			if err := p.typeFor(ctx, instance, phone, delay); err != nil {
				return err
			}
		}
		if err := p.sender.SendText(ctx, instance, phone, part); err != nil {
			return err
		}
		if record != nil {
			if err := record(part); err != nil {
				log.Error().Err(err).Str("phone", phone).Msg("failed to persist outbound message part")
			}
		}
	}
	return nil
}

// typeFor shows the composing indicator while waiting out the delay.
// The indicator is cosmetic; its errors are swallowed. Context
// cancellation still aborts the remaining parts.
func (p *Pacer) typeFor(ctx context.Context, instance, phone string, delay time.Duration) error {
	_ = p.sender.SendTyping(ctx, instance, phone, int(delay.Milliseconds()))
	p.sleep(delay)
	return ctx.Err()
}

// partDelay scales with how long the previous part would take to type.
func partDelay(prevLen int) time.Duration {
	delay := time.Duration(prevLen) * config.PacerDelayPerChar
	if delay < config.PacerMinDelay {
		return config.PacerMinDelay
	}
	if delay > config.PacerMaxDelay {
		return config.PacerMaxDelay
	}
	return delay
}

// SplitReply breaks a reply into message-sized parts. Short replies pass
// through whole. Longer ones split on blank lines, with small fragments
// merged back together; sentence packing is the fallback for long text
// that has no paragraph boundaries at all.
func SplitReply(text string) []string {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}
	if len(text) < config.PacerSingleMessageMax {
		return []string{text}
	}

	var parts []string
	for _, para := range strings.Split(text, "\n\n") {
		if para = strings.TrimSpace(para); para != "" {
			parts = append(parts, para)
		}
	}
	if len(parts) == 1 && len(text) > config.PacerSentenceSplitMin {
		parts = splitSentences(text)
	}

	parts = mergeShort(parts)

	if len(parts) > config.PacerMaxParts {
		tail := strings.Join(parts[config.PacerMaxParts-1:], "\n\n")
		parts = append(parts[:config.PacerMaxParts-1], tail)
	}
	return parts
}

// mergeShort joins adjacent parts while the combination stays small,
// so a reply never arrives as a burst of fragments.
func mergeShort(parts []string) []string {
	if len(parts) < 2 {
		return parts
	}
	merged := []string{parts[0]}
	for _, part := range parts[1:] {
		last := merged[len(merged)-1]
		if len(last)+len(part)+2 < config.PacerMergeBelow {
			merged[len(merged)-1] = last + "\n\n" + part
		} else {
			merged = append(merged, part)
		}
	}
	return merged
}

// splitSentences packs sentences into chunks near the target size.
func splitSentences(text string) []string {
	sentences := splitAfterAny(text, ".!?")
	var chunks []string
	var current strings.Builder
	for _, sentence := range sentences {
		if current.Len() > 0 && current.Len()+len(sentence) > config.PacerChunkTarget {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
		}
		current.WriteString(sentence)
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		chunks = append(chunks, s)
	}
	return chunks
}

// splitAfterAny splits text after each occurrence of any terminator rune,
// keeping the terminator attached to the preceding fragment.
func splitAfterAny(text, terminators string) []string {
	var out []string
	start := 0
	for i, r := range text {
		if strings.ContainsRune(terminators, r) {
			out = append(out, text[start:i+1])
			start = i + 1
		}
	}
	if start < len(text) {
		out = append(out, text[start:])
	}
	return out
}
