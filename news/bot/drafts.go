package bot

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	tele "gopkg.in/telebot.v4"

	"github.com/m3rciful/newsbot/core/logger"
	"github.com/m3rciful/newsbot/core/telegram/format"
	"github.com/m3rciful/newsbot/core/telegram/helpers"
	"github.com/m3rciful/newsbot/news"
)

const (
	// DraftTitle replaces the title and text of a draft without text.
	DraftTitle  = "New story"
	maxTitleLen = 120
	defaultExt  = ".jpg"
)

// buildTitle returns the first non-empty line of text, shortened to
// maxTitleLen runes.
func buildTitle(text string) string {
	if line := format.FirstLine(text); line != "" {
		return format.Truncate(line, maxTitleLen)
	}
	return DraftTitle
}

// draftText is the caption or text of the first message that has one.
func draftText(msgs []*tele.Message) string {
	for _, m := range msgs {
		if t := strings.TrimSpace(helpers.MessageText(m)); t != "" {
			return t
		}
	}
	return ""
}

// createDraft stores msgs as one draft. Photos that fail to download are
// skipped and reported.
func (b *Bot) createDraft(ctx context.Context, chatID int64, msgs []*tele.Message) error {
	if len(msgs) == 0 {
		return nil
	}
	var (
		images []string
		failed int
	)
	for _, m := range msgs {
		fileID := helpers.LargestPhotoID(m)
		if fileID == "" {
			continue
		}
		name, err := b.savePhoto(ctx, fileID, m.ID)
		if err != nil {
			failed++
			logFailure(ctx, "draft.photo", err, slog.Int("message_id", m.ID))
			continue
		}
		images = append(images, name)
	}

	text := draftText(msgs)
	paragraphs := news.SplitParagraphs(text)
	if len(paragraphs) == 0 {
		paragraphs = []string{DraftTitle}
	}
	first := msgs[0]
	draft := news.Item{
		Title:  buildTitle(text),
		Text:   news.Plain(paragraphs...),
		Image:  images,
		Date:   news.FormatDate(b.now()),
		Status: news.StatusDraft,
		Source: &news.Source{
			ChatID:       chatID,
			MessageID:    first.ID,
			MediaGroupID: first.AlbumID,
		},
	}
	it, err := b.opts.Store.Create(ctx, draft)
	if err != nil {
		return fmt.Errorf("create draft: %w", err)
	}
	logger.Info(ctx, "bot", "draft.created",
		slog.Int("news_id", it.ID),
		slog.Int("images", len(images)),
		slog.String("group_id", first.AlbumID),
	)

	lines := []string{emojiSuccess + " *Draft created!*", "", shortLine(it)}
	if failed > 0 {
		lines = append(lines, "", fmt.Sprintf("%s %d photo(s) could not be saved", emojiWarning, failed))
	}
	return b.reply(ctx, chatID, strings.Join(lines, "\n"), itemKeyboard(it))
}

// savePhoto downloads a photo into PhotosDir as news_<msgid>_<unixms><ext>
// and returns the file name.
func (b *Bot) savePhoto(ctx context.Context, fileID string, messageID int) (string, error) {
	file, err := b.opts.API.GetFile(ctx, fileID)
	if err != nil {
		return "", fmt.Errorf("resolve photo: %w", err)
	}
	ext := path.Ext(file.FilePath)
	if ext == "" {
		ext = defaultExt
	}
	name := fmt.Sprintf("news_%d_%d%s", messageID, b.opts.Now().UnixMilli(), ext)

	if err := os.MkdirAll(b.opts.PhotosDir, 0o755); err != nil {
		return "", fmt.Errorf("photos dir: %w", err)
	}
	tmp, err := os.CreateTemp(b.opts.PhotosDir, ".photo-*")
	if err != nil {
		return "", fmt.Errorf("photo temp file: %w", err)
	}
	tmpPath := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpPath) }

	if _, err := b.opts.API.DownloadFile(ctx, file.FilePath, tmp); err != nil {
		_ = tmp.Close()
		cleanup()
		return "", fmt.Errorf("download photo: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", fmt.Errorf("photo close: %w", err)
	}
	if err := os.Rename(tmpPath, filepath.Join(b.opts.PhotosDir, name)); err != nil {
		cleanup()
		return "", fmt.Errorf("photo rename: %w", err)
	}
	return name, nil
}

// flushAlbum turns a buffered media group into a single draft.
func (b *Bot) flushAlbum(ctx context.Context, chatID int64, msgs []*tele.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.createDraft(ctx, chatID, msgs); err != nil {
		logFailure(ctx, "album.flush", err, slog.Int("messages", len(msgs)))
		_ = b.reply(ctx, chatID, emojiError+" Could not create a draft from the album", nil)
	}
}
