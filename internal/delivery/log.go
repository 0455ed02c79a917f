package delivery

import (
	"context"
	"fmt"
	"log"
	"os"
)

// LogSender writes messages to the log instead of a chat. Used for dry runs.
type LogSender struct{}

func (LogSender) SendText(ctx context.Context, address, text string) error {
	log.Printf("[%s] %s", address, text)
	return nil
}

func (LogSender) SendImage(ctx context.Context, address, imagePath, caption string) error {
	if _, err := os.Stat(imagePath); err != nil {
		return fmt.Errorf("image not readable: %w", err)
	}
	log.Printf("[%s] %s <image %s>", address, caption, imagePath)
	return nil
}
