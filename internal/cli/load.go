package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/aretw0/loadkit"
	"github.com/aretw0/loadkit/internal/config"
	"github.com/aretw0/loadkit/internal/presentation/tui"
	"github.com/aretw0/loadkit/pkg/domain"
	"github.com/muesli/termenv"
)

// ErrLoadFailed is returned when the backend reported an error.
var ErrLoadFailed = errors.New("load failed")

// LoadOptions contains all the configuration for the load command.
type LoadOptions struct {
	Targets []string
	Headers []string // "Name=Value" or "Name: Value"
	Charset string
	Stdin   io.Reader
	Out     io.Writer
	Profile termenv.Profile
	Quiet   bool
}

// Result is what RunLoad reports back.
type Result struct {
	// Record is set for image loads.
	Record *domain.LoadRecord
	// State is set for state documents.
	State *domain.Data
}

// RunLoad loads opts.Targets, printing events as they come, and waits for the end.
// An aborted load is not an error.
func RunLoad(ctx context.Context, cfg config.Config, logger *slog.Logger, opts LoadOptions) (Result, error) {
	source, err := detectSource(opts.Targets)
	if err != nil {
		return Result{}, err
	}
	headers, err := mergeHeaders(cfg.RequestHeaders(), opts.Headers)
	if err != nil {
		return Result{}, err
	}
	if opts.Charset != "" {
		cfg.CharacterSet = opts.Charset
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}

	states := make(chan *domain.Data, 1)
	rt, err := NewRuntime(ctx, cfg, logger, RuntimeOptions{
		Interactive: true,
		Stdin:       opts.Stdin,
		Extra: []loadkit.Option{loadkit.WithHostHooks(loadkit.HostHooks{
			OnLoadStateData: func(data *domain.Data) {
				select {
				case states <- data:
				default:
				}
			},
		})},
	})
	if err != nil {
		return Result{}, err
	}
	defer rt.Close()

	ctl := rt.Controller
	stateErrs := make(chan string, 1)
	ctl.AddEventListener(domain.EventLoadError, func(e domain.Event) {
		select {
		case stateErrs <- e.(domain.ErrorEvent).Message:
		default:
		}
	})
	if !opts.Quiet {
		tui.NewPrinter(opts.Out, opts.Profile).Attach(ctl)
	}

	rec, err := ctl.Await(ctx, func(ctx context.Context) error {
		if source == domain.SourceURLs {
			return ctl.LoadURLs(ctx, opts.Targets, headers)
		}
		return ctl.LoadFiles(ctx, opts.Targets)
	})
	switch {
	case errors.Is(err, domain.ErrRecordNotFound):
		return waitState(ctx, opts, states, stateErrs)
	case err != nil:
		return Result{}, err
	}

	logger.Info("Load finished", "load_id", rec.ID, "outcome", rec.Outcome, "slices", rec.Slices)
	if rec.Outcome == domain.OutcomeError {
		return Result{Record: &rec}, fmt.Errorf("%w: %s", ErrLoadFailed, rec.Message)
	}
	return Result{Record: &rec}, nil
}

// waitState waits for the single delivery of a state document.
func waitState(ctx context.Context, opts LoadOptions, states <-chan *domain.Data, errs <-chan string) (Result, error) {
	select {
	case data := <-states:
		if !opts.Quiet {
			fmt.Fprintf(opts.Out, "state document %s loaded (%d bytes)\r\n", data.Info.Name, data.Info.Size)
		}
		return Result{State: data}, nil
	case msg := <-errs:
		return Result{}, fmt.Errorf("%w: %s", ErrLoadFailed, msg)
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// detectSource tells URLs from file paths. Mixing both is rejected.
func detectSource(targets []string) (domain.Source, error) {
	if len(targets) == 0 {
		return "", domain.ErrEmptyRequest
	}
	urls := 0
	for _, t := range targets {
		if isURL(t) {
			urls++
		}
	}
	switch urls {
	case 0:
		return domain.SourceFiles, nil
	case len(targets):
		return domain.SourceURLs, nil
	}
	return "", errors.New("cannot mix URLs and file paths in one load")
}

func isURL(s string) bool {
	s = strings.ToLower(s)
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// mergeHeaders overlays flag headers on the configured ones. Names compare case-insensitively.
func mergeHeaders(base []domain.Header, flags []string) ([]domain.Header, error) {
	out := append([]domain.Header(nil), base...)
	for _, raw := range flags {
		h, err := parseHeader(raw)
		if err != nil {
			return nil, err
		}
		replaced := false
		for i := range out {
			if strings.EqualFold(out[i].Name, h.Name) {
				out[i] = h
				replaced = true
			}
		}
		if !replaced {
			out = append(out, h)
		}
	}
	return out, nil
}

func parseHeader(raw string) (domain.Header, error) {
	sep := strings.IndexAny(raw, "=:")
	if sep <= 0 {
		return domain.Header{}, fmt.Errorf("malformed header %q, want name=value", raw)
	}
	name := strings.TrimSpace(raw[:sep])
	if name == "" {
		return domain.Header{}, fmt.Errorf("malformed header %q, want name=value", raw)
	}
	return domain.Header{Name: name, Value: strings.TrimSpace(raw[sep+1:])}, nil
}
