package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/MikeSquared-Agency/callhour/internal/bucket"
	"github.com/MikeSquared-Agency/callhour/internal/metrics"
	"github.com/MikeSquared-Agency/callhour/internal/processor"
)

const (
	chatQueueSize   = 16
	chatIdleTimeout = 5 * time.Minute
	maxPollBackoff  = 30 * time.Second
)

// API is the subset of the Bot API the bot uses.
type API interface {
	GetUpdates(ctx context.Context, offset int64, timeout time.Duration) ([]Update, error)
	SendMessage(ctx context.Context, chatID int64, text string) error
	GetFile(ctx context.Context, fileID string) (*File, error)
	Download(ctx context.Context, filePath string) (io.ReadCloser, error)
}

// Service is what a chat turn drives.
type Service interface {
	Upload(ctx context.Context, sessionID, fileName string, r io.Reader) (*processor.UploadSummary, error)
	Inspect(sessionID, phone string) (*processor.Analysis, error)
	Recommend(ctx context.Context, a *processor.Analysis) (*processor.Analysis, error)
	Reset(sessionID string) bool
}

// Bot polls for updates and handles each chat's messages in order, one at a
// time, while different chats proceed concurrently.
type Bot struct {
	api         API
	svc         Service
	logger      *slog.Logger
	pollTimeout time.Duration
	maxUpload   int64
	idleTimeout time.Duration

	mu     sync.Mutex
	queues map[int64]chan Message
	wg     sync.WaitGroup
}

func NewBot(api API, svc Service, pollTimeout time.Duration, maxUpload int64, logger *slog.Logger) *Bot {
	return &Bot{
		api:         api,
		svc:         svc,
		logger:      logger,
		pollTimeout: pollTimeout,
		maxUpload:   maxUpload,
		idleTimeout: chatIdleTimeout,
		queues:      make(map[int64]chan Message),
	}
}

// SessionID maps a chat to its session key.
func SessionID(chatID int64) string {
	return fmt.Sprintf("tg:%d", chatID)
}

// Run polls until ctx is cancelled, then waits for in-flight turns.
func (b *Bot) Run(ctx context.Context) error {
	defer b.wg.Wait()

	b.logger.Info("telegram polling started", "timeout", b.pollTimeout)
	var offset int64
	backoff := time.Second
	for {
		updates, err := b.api.GetUpdates(ctx, offset, b.pollTimeout)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			b.logger.Warn("get updates failed", "error", err, "retry_in", backoff)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = min(backoff*2, maxPollBackoff)
			continue
		}
		backoff = time.Second

		for _, u := range updates {
			offset = u.UpdateID + 1
			if u.Message == nil {
				continue
			}
			b.dispatch(ctx, *u.Message)
		}
	}
}

func (b *Bot) dispatch(ctx context.Context, msg Message) {
	chatID := msg.Chat.ID

	b.mu.Lock()
	q, ok := b.queues[chatID]
	if !ok {
		q = make(chan Message, chatQueueSize)
		b.queues[chatID] = q
		b.wg.Add(1)
		go b.worker(ctx, chatID, q)
	}
	select {
	case q <- msg:
		b.mu.Unlock()
		return
	default:
	}
	b.mu.Unlock()

	// The queue is full, so its worker cannot retire before draining it.
	select {
	case q <- msg:
	case <-ctx.Done():
	}
}

func (b *Bot) worker(ctx context.Context, chatID int64, q chan Message) {
	defer b.wg.Done()

	idle := time.NewTimer(b.idleTimeout)
	defer idle.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-q:
			b.handle(ctx, msg)
			idle.Reset(b.idleTimeout)
		case <-idle.C:
			b.mu.Lock()
			if len(q) == 0 {
				delete(b.queues, chatID)
				b.mu.Unlock()
				return
			}
			b.mu.Unlock()
			idle.Reset(b.idleTimeout)
		}
	}
}

// handle runs one chat turn. Failures become a one-line reply.
func (b *Bot) handle(ctx context.Context, msg Message) {
	chatID := msg.Chat.ID
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("chat turn panicked", "chat_id", chatID, "panic", p)
			b.reply(ctx, chatID, internalError)
		}
	}()

	sessionID := SessionID(chatID)
	text := strings.TrimSpace(msg.Text)

	switch {
	case msg.Document != nil:
		metrics.RecordChatMessage("document")
		b.handleDocument(ctx, chatID, sessionID, msg.Document)
	case strings.HasPrefix(text, "/"):
		metrics.RecordChatMessage("command")
		b.handleCommand(ctx, chatID, sessionID, text)
	case text != "":
		metrics.RecordChatMessage("text")
		b.handleNumber(ctx, chatID, sessionID, text)
	default:
		metrics.RecordChatMessage("other")
	}
}

func (b *Bot) handleCommand(ctx context.Context, chatID int64, sessionID, text string) {
	cmd, _, _ := strings.Cut(text, " ")
	cmd, _, _ = strings.Cut(cmd, "@")
	switch cmd {
	case "/reset":
		if b.svc.Reset(sessionID) {
			b.reply(ctx, chatID, resetText)
		} else {
			b.reply(ctx, chatID, nothingResetText)
		}
	default:
		b.reply(ctx, chatID, greetingText)
	}
}

func (b *Bot) handleDocument(ctx context.Context, chatID int64, sessionID string, doc *Document) {
	if b.maxUpload > 0 && doc.FileSize > b.maxUpload {
		b.reply(ctx, chatID, uploadErrorText(processor.ErrFileTooLarge))
		return
	}

	file, err := b.api.GetFile(ctx, doc.FileID)
	if err != nil {
		b.logger.Error("get file failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, uploadErrorText(err))
		return
	}
	body, err := b.api.Download(ctx, file.FilePath)
	if err != nil {
		b.logger.Error("download failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, uploadErrorText(err))
		return
	}
	defer body.Close()

	name := doc.FileName
	if name == "" {
		name = file.FilePath
	}
	sum, err := b.svc.Upload(ctx, sessionID, name, body)
	if err != nil {
		b.reply(ctx, chatID, uploadErrorText(err))
		return
	}

	b.reply(ctx, chatID, previewText(sum))
	b.reply(ctx, chatID, uploadedText(sum))
}

func (b *Bot) handleNumber(ctx context.Context, chatID int64, sessionID, phone string) {
	inspected, err := b.svc.Inspect(sessionID, phone)
	if err != nil {
		if errors.Is(err, bucket.ErrNoDataForNumber) {
			b.reply(ctx, chatID, noDataText)
			return
		}
		b.logger.Error("inspect failed", "chat_id", chatID, "error", err)
		b.reply(ctx, chatID, internalError)
		return
	}

	b.reply(ctx, chatID, progressText)

	a, err := b.svc.Recommend(ctx, inspected)
	if a == nil {
		a = inspected
	}
	b.reply(ctx, chatID, localeCard(a.Phone, a.Locale))
	if err != nil {
		b.reply(ctx, chatID, analysisErrorText(err))
		return
	}
	b.reply(ctx, chatID, resultHeader+a.Recommendation)
}

func (b *Bot) reply(ctx context.Context, chatID int64, text string) {
	if err := b.api.SendMessage(ctx, chatID, text); err != nil {
		b.logger.Error("send message failed", "chat_id", chatID, "error", err)
	}
}
