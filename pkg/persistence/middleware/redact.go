package middleware

import (
	"context"
	"net/url"
	"regexp"

	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/aretw0/loadkit/pkg/ports"
)

// Mask replaces redacted values.
const Mask = "REDACTED"

// DefaultSensitiveParams match query parameters that usually carry credentials,
// such as signed URL parameters of object stores.
var DefaultSensitiveParams = []string{
	`(?i)token`,
	`(?i)^(api[-_]?)?key$`,
	`(?i)^sig(nature)?$`,
	`(?i)secret`,
	`(?i)password`,
	`(?i)^x-amz-(credential|signature|security-token)$`,
}

var urlPattern = regexp.MustCompile(`https?://[^\s]*[^\s:,;.)]`)

// Redactor masks credentials in URLs.
type Redactor struct {
	patterns []*regexp.Regexp
}

// NewRedactor compiles the query parameter patterns. It panics on an invalid pattern;
// configuration is validated before it gets here.
func NewRedactor(patternStrings []string) *Redactor {
	patterns := make([]*regexp.Regexp, len(patternStrings))
	for i, p := range patternStrings {
		patterns[i] = regexp.MustCompile(p)
	}
	return &Redactor{patterns: patterns}
}

// Text masks every absolute URL found in s.
func (r *Redactor) Text(s string) string {
	return urlPattern.ReplaceAllStringFunc(s, r.URL)
}

// URL masks the password and the sensitive query values of s. Anything that is not an
// absolute URL is returned untouched.
func (r *Redactor) URL(s string) string {
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return s
	}

	changed := false
	if _, ok := u.User.Password(); ok {
		u.User = url.UserPassword(u.User.Username(), Mask)
		changed = true
	}

	if u.RawQuery != "" {
		q := u.Query()
		for key, values := range q {
			if !r.sensitive(key) {
				continue
			}
			for i := range values {
				values[i] = Mask
			}
			changed = true
		}
		if changed {
			u.RawQuery = q.Encode()
		}
	}

	if !changed {
		return s
	}
	return u.String()
}

func (r *Redactor) sensitive(key string) bool {
	for _, p := range r.patterns {
		if p.MatchString(key) {
			return true
		}
	}
	return false
}

type redactMiddleware struct {
	next     ports.JournalStore
	redactor *Redactor
}

// NewRedactMiddleware creates a middleware that masks URL passwords and the values of
// query parameters matching the patterns before records reach the store.
// Both the first item and the message of a record are scanned.
func NewRedactMiddleware(patternStrings []string) Middleware {
	r := NewRedactor(patternStrings)
	return func(next ports.JournalStore) ports.JournalStore {
		return &redactMiddleware{next: next, redactor: r}
	}
}

func (m *redactMiddleware) Append(ctx context.Context, record domain.LoadRecord) error {
	record.First = m.redactor.URL(record.First)
	record.Message = m.redactor.Text(record.Message)
	return m.next.Append(ctx, record)
}

func (m *redactMiddleware) Get(ctx context.Context, id string) (domain.LoadRecord, error) {
	return m.next.Get(ctx, id)
}

func (m *redactMiddleware) List(ctx context.Context, limit int) ([]domain.LoadRecord, error) {
	return m.next.List(ctx, limit)
}
