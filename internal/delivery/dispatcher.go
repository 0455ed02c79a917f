// Package delivery sends report messages and posters to chat destinations.
// Each destination is attempted on its own; one failing group never stops
// the others.
package delivery

import (
	"context"
	"fmt"
	"log"
	"strings"
)

// ImageFallbackSuffix is appended to the caption when an image cannot be sent.
const ImageFallbackSuffix = "\n（图片发送失败，请联系管理员检查机器人文件读写权限。）"

// Sender delivers messages to a single address.
type Sender interface {
	SendText(ctx context.Context, address, text string) error
	SendImage(ctx context.Context, address, imagePath, caption string) error
}

// Observer is notified of every delivery outcome.
type Observer interface {
	Delivery(status string)
}

type Status string

const (
	StatusSent     Status = "sent"
	StatusDegraded Status = "degraded"
	StatusFailed   Status = "failed"
)

// Outcome is the result of sending to one destination.
type Outcome struct {
	Destination string `json:"destination"`
	Status      Status `json:"status"`
	Error       string `json:"error,omitempty"`
}

// Report collects per-destination outcomes of one send.
type Report struct {
	Outcomes []Outcome `json:"outcomes"`
}

func (r Report) count(status Status) int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}

func (r Report) Sent() int     { return r.count(StatusSent) }
func (r Report) Degraded() int { return r.count(StatusDegraded) }
func (r Report) Failed() int   { return r.count(StatusFailed) }

// AllFailed reports whether there were destinations and none received anything.
func (r Report) AllFailed() bool {
	return len(r.Outcomes) > 0 && r.Failed() == len(r.Outcomes)
}

// Partial reports whether some, but not all, destinations got the full message.
func (r Report) Partial() bool {
	return r.Sent() > 0 && r.Sent() < len(r.Outcomes)
}

// Dispatcher fans messages out to destinations through one Sender.
type Dispatcher struct {
	sender   Sender
	template string
	observer Observer
}

// NewDispatcher maps destination ids to sender addresses through template,
// e.g. "aiocqhttp:group:%s". A template without a verb uses ids as is.
func NewDispatcher(sender Sender, template string, observer Observer) *Dispatcher {
	return &Dispatcher{sender: sender, template: template, observer: observer}
}

// Address returns the sender address for a destination id.
func (d *Dispatcher) Address(dest string) string {
	if strings.Contains(d.template, "%s") {
		return fmt.Sprintf(d.template, dest)
	}
	return dest
}

// SendText sends text to every destination.
func (d *Dispatcher) SendText(ctx context.Context, dests []string, text string) Report {
	var report Report
	for _, dest := range dests {
		outcome := Outcome{Destination: dest, Status: StatusSent}
		if err := d.sender.SendText(ctx, d.Address(dest), text); err != nil {
			log.Printf("Failed to send text to %s: %v", dest, err)
			outcome.Status = StatusFailed
			outcome.Error = err.Error()
		}
		d.record(&report, outcome)
	}
	return report
}

// SendImageWithCaption sends the image and caption to every destination. A
// destination whose image send fails gets the caption as text instead.
func (d *Dispatcher) SendImageWithCaption(ctx context.Context, dests []string, imagePath, caption string) Report {
	var report Report
	for _, dest := range dests {
		d.record(&report, d.sendImage(ctx, dest, imagePath, caption))
	}
	return report
}

func (d *Dispatcher) sendImage(ctx context.Context, dest, imagePath, caption string) Outcome {
	address := d.Address(dest)

	err := d.sender.SendImage(ctx, address, imagePath, caption)
	if err == nil {
		return Outcome{Destination: dest, Status: StatusSent}
	}
	log.Printf("Warning: failed to send image to %s, falling back to text: %v", dest, err)

	if fbErr := d.sender.SendText(ctx, address, caption+ImageFallbackSuffix); fbErr != nil {
		log.Printf("Failed to send fallback text to %s: %v", dest, fbErr)
		return Outcome{Destination: dest, Status: StatusFailed, Error: fbErr.Error()}
	}
	return Outcome{Destination: dest, Status: StatusDegraded, Error: err.Error()}
}

func (d *Dispatcher) record(report *Report, outcome Outcome) {
	report.Outcomes = append(report.Outcomes, outcome)
	if d.observer != nil {
		d.observer.Delivery(string(outcome.Status))
	}
}
