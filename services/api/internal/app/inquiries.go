package app

import (
	"context"
	"errors"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"

	"svnglobal/internal/util"
	"svnglobal/pkg/domain"
	"svnglobal/pkg/store"
)

const previewRunes = 140

// InquiryView is an inquiry as shown in the admin inbox.
type InquiryView struct {
	domain.ContactInquiry
	Preview string `json:"preview"`
}

// SubmitInquiry stores a contact form submission as a single unread row.
func (a *App) SubmitInquiry(ctx context.Context, form domain.ContactForm) (domain.ContactInquiry, error) {
	if err := a.requireStore(); err != nil {
		return domain.ContactInquiry{}, err
	}
	name := strings.TrimSpace(form.Name)
	email := strings.TrimSpace(form.Email)
	message := strings.TrimSpace(form.Message)
	if name == "" || email == "" || message == "" {
		return domain.ContactInquiry{}, invalid("Name, email, and message are required")
	}
	inq := domain.ContactInquiry{
		ID:        util.NewID(),
		Name:      name,
		Email:     email,
		Phone:     trimOptional(form.Phone),
		Subject:   trimOptional(form.Subject),
		Message:   message,
		CreatedAt: a.now(),
	}
	if err := a.store.SaveInquiry(ctx, inq); err != nil {
		return domain.ContactInquiry{}, err
	}
	return inq, nil
}

// ListInquiries returns inquiries newest first.
func (a *App) ListInquiries(ctx context.Context, unreadOnly bool) ([]InquiryView, error) {
	if err := a.requireStore(); err != nil {
		return nil, err
	}
	rows, err := a.store.ListInquiries(ctx, store.InquiryQuery{UnreadOnly: unreadOnly})
	if err != nil {
		return nil, err
	}
	out := make([]InquiryView, 0, len(rows))
	for _, inq := range rows {
		out = append(out, InquiryView{ContactInquiry: inq, Preview: messagePreview(inq.Message)})
	}
	return out, nil
}

func (a *App) MarkInquiryRead(ctx context.Context, id string, read bool) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	ok, err := a.store.SetInquiryRead(ctx, strings.TrimSpace(id), read)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}

func (a *App) DeleteInquiry(ctx context.Context, id string) error {
	if err := a.requireStore(); err != nil {
		return err
	}
	return a.store.DeleteInquiry(ctx, strings.TrimSpace(id))
}

// messagePreview reduces a message to a single line of visible text. Markup
// pasted into the form is dropped along with script and style bodies.
func messagePreview(message string) string {
	z := html.NewTokenizer(strings.NewReader(message))
	var (
		b    strings.Builder
		skip int
	)
	for {
		tt := z.Next()
		if tt == html.ErrorToken {
			if !errors.Is(z.Err(), io.EOF) {
				return truncateRunes(collapseSpace(message), previewRunes)
			}
			break
		}
		switch tt {
		case html.StartTagToken:
			if isRawTextTag(z) {
				skip++
			}
		case html.EndTagToken:
			if isRawTextTag(z) && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				b.Write(z.Text())
				b.WriteByte(' ')
			}
		}
	}
	return truncateRunes(collapseSpace(b.String()), previewRunes)
}

func isRawTextTag(z *html.Tokenizer) bool {
	name, _ := z.TagName()
	switch string(name) {
	case "script", "style":
		return true
	}
	return false
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func truncateRunes(s string, limit int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:limit])) + "…"
}
