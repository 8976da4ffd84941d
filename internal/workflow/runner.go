package workflow

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"epublift/internal/api"
	"epublift/internal/config"
	"epublift/internal/fileutil"
	"epublift/internal/logging"
	"epublift/internal/notifications"
	"epublift/internal/poller"
	"epublift/internal/textutil"
	"epublift/internal/workspace"
)

// Workflow step names used in error context and logs.
const (
	stepAuth     = "credential check"
	stepCreate   = "create book"
	stepUpload   = "upload document"
	stepIngest   = "wait for ingestion"
	stepConvert  = "trigger conversion"
	stepWait     = "wait for conversion"
	stepDownload = "download artifact"
	stepCleanup  = "cleanup"
)

// Result summarizes a successful run.
type Result struct {
	Book            api.Book
	DisplayTitle    string
	OutputPath      string
	Kept            bool
	ContinuationURL string
	Elapsed         time.Duration
}

// Runner drives the conversion state machine: credential check, create,
// upload, wait-for-ingest, convert, wait-for-convert, download, cleanup.
// Steps execute strictly in order with no re-entry; each starts only
// after the previous step's terminal success.
type Runner struct {
	client   *api.Client
	cfg      *config.Config
	poller   *poller.Poller
	ws       *workspace.Workspace
	notifier notifications.Service
	logger   *slog.Logger
}

// New constructs a runner. All collaborators are required except the
// notifier, which defaults to a noop, and the logger.
func New(client *api.Client, cfg *config.Config, p *poller.Poller, ws *workspace.Workspace, notifier notifications.Service, logger *slog.Logger) (*Runner, error) {
	if client == nil || cfg == nil || p == nil || ws == nil {
		return nil, errors.New("runner requires client, config, poller, and workspace")
	}
	if notifier == nil {
		notifier = notifications.NewService("", 0)
	}
	return &Runner{
		client:   client,
		cfg:      cfg,
		poller:   p,
		ws:       ws,
		notifier: notifier,
		logger:   logging.WithComponent(logger, "workflow"),
	}, nil
}

// Run executes the full state machine and returns the final artifact
// location. On any fatal error the remote job is left in place for
// manual inspection; the job is deleted only on the full-success path
// and only when keep_remote is false.
func (r *Runner) Run(ctx context.Context) (Result, error) {
	start := time.Now()
	log := r.logger.With(logging.String("run_id", uuid.NewString()))
	title := textutil.DisplayTitle(r.cfg.InputFile)

	result, err := r.run(ctx, log)
	if err != nil {
		r.notify(notifications.EventConversionFailed, fmt.Sprintf("%s: %v", title, err))
		return Result{}, err
	}

	result.DisplayTitle = title
	result.Elapsed = time.Since(start)
	r.notify(notifications.EventConversionCompleted, fmt.Sprintf("%s converted to %s", title, filepath.Base(result.OutputPath)))
	return result, nil
}

func (r *Runner) run(ctx context.Context, log *slog.Logger) (Result, error) {
	if err := r.checkCredentials(ctx, log); err != nil {
		return Result{}, err
	}

	book, err := r.createBook(ctx, log)
	if err != nil {
		return Result{}, err
	}

	if err := r.uploadDocument(ctx, log, book); err != nil {
		return Result{}, err
	}

	if err := r.waitForIngest(ctx, log, book); err != nil {
		return Result{}, err
	}

	downloadURL, err := r.triggerConversion(ctx, log, book)
	if err != nil {
		return Result{}, err
	}

	if err := r.waitForConversion(ctx, log, downloadURL); err != nil {
		return Result{}, err
	}

	outputPath, err := r.downloadArtifact(ctx, log, book, downloadURL)
	if err != nil {
		return Result{}, err
	}

	result := Result{Book: book, OutputPath: outputPath}
	if err := r.cleanup(ctx, log, book, &result); err != nil {
		return Result{}, err
	}
	return result, nil
}

func (r *Runner) checkCredentials(ctx context.Context, log *slog.Logger) error {
	if err := r.client.CheckCredentials(ctx); err != nil {
		if errors.Is(err, api.ErrUnauthorized) {
			return Wrap(ErrAuthentication, stepAuth, "token rejected by profile endpoint", err)
		}
		return Wrap(ErrTransport, stepAuth, "profile endpoint unreachable", err)
	}
	log.Debug("credentials accepted")
	return nil
}

func (r *Runner) createBook(ctx context.Context, log *slog.Logger) (api.Book, error) {
	name := strings.TrimSuffix(filepath.Base(r.cfg.InputFile), filepath.Ext(r.cfg.InputFile))
	book, err := r.client.CreateBook(ctx, name, api.Metadata{
		Title:     r.cfg.Metadata.Title,
		Author:    r.cfg.Metadata.Author,
		ISBN:      r.cfg.Metadata.ISBN,
		Publisher: r.cfg.Metadata.Publisher,
	})
	if err != nil {
		// Nothing to clean up remotely: no confirmed job exists yet.
		return api.Book{}, Wrap(ErrTransport, stepCreate, "", err)
	}
	log.Info("book created",
		logging.String("book_id", book.ID),
		logging.String("bookflow_id", book.BookflowID))
	return book, nil
}

func (r *Runner) uploadDocument(ctx context.Context, log *slog.Logger, book api.Book) error {
	raw, err := os.ReadFile(r.cfg.InputFile)
	if err != nil {
		return Wrap(ErrConfiguration, stepUpload, "read input file", err)
	}

	encoded := base64.StdEncoding.EncodeToString(raw)
	if _, err := r.ws.Stage("document.base64", []byte(encoded)); err != nil {
		return Wrap(ErrConfiguration, stepUpload, "stage encoded payload", err)
	}

	envelope, err := api.DocumentPayload(filepath.Base(r.cfg.InputFile), encoded)
	if err != nil {
		return Wrap(ErrTransport, stepUpload, "build upload envelope", err)
	}
	if _, err := r.ws.Stage("document.json", envelope); err != nil {
		return Wrap(ErrConfiguration, stepUpload, "stage upload envelope", err)
	}

	if err := r.client.UploadDocument(ctx, book.BookflowID, envelope); err != nil {
		// The book stays on the server for manual inspection: cleanup
		// only runs on the full-success path.
		return Wrap(ErrTransport, stepUpload, "", err)
	}
	log.Info("document uploaded",
		logging.String("bookflow_id", book.BookflowID),
		logging.Int("bytes", len(raw)))
	return nil
}

func (r *Runner) waitForIngest(ctx context.Context, log *slog.Logger, book api.Book) error {
	terminal := poller.Terminal(api.StepConvert, api.StepProcessingFailed)
	status, err := r.poller.Wait(ctx, func(ctx context.Context) (poller.Status, error) {
		step, err := r.client.BookflowStep(ctx, book.BookflowID)
		return poller.Status(step), err
	}, terminal)
	if err != nil {
		return Wrap(ErrTransport, stepIngest, "", err)
	}
	if status == poller.Status(api.StepProcessingFailed) {
		return Wrap(ErrRemote, stepIngest, "server could not ingest the document", nil)
	}
	log.Info("ingestion complete", logging.String("bookflow_id", book.BookflowID))
	return nil
}

func (r *Runner) triggerConversion(ctx context.Context, log *slog.Logger, book api.Book) (string, error) {
	downloadURL, err := r.client.Convert(ctx, book.BookflowID)
	if err != nil {
		return "", Wrap(ErrTransport, stepConvert, "", err)
	}
	log.Info("conversion requested", logging.String("download_url", downloadURL))
	return downloadURL, nil
}

func (r *Runner) waitForConversion(ctx context.Context, log *slog.Logger, downloadURL string) error {
	terminal := poller.Terminal(api.StatusOK, api.StatusFailed)
	status, err := r.poller.Wait(ctx, func(ctx context.Context) (poller.Status, error) {
		state, err := r.client.ConversionStatus(ctx, downloadURL)
		return poller.Status(state), err
	}, terminal)
	if err != nil {
		return Wrap(ErrTransport, stepWait, "", err)
	}
	if status == poller.Status(api.StatusFailed) {
		return Wrap(ErrRemote, stepWait, "server reported the conversion failed", nil)
	}
	log.Info("conversion complete")
	return nil
}

func (r *Runner) downloadArtifact(ctx context.Context, log *slog.Logger, book api.Book, downloadURL string) (string, error) {
	data, err := r.client.DownloadArtifact(ctx, downloadURL)
	if err != nil {
		return "", Wrap(ErrTransport, stepDownload, "", err)
	}

	ext := filepath.Ext(r.cfg.InputFile)
	staged, err := r.ws.Stage(book.BookflowID+ext, data)
	if err != nil {
		return "", Wrap(ErrConfiguration, stepDownload, "stage artifact", err)
	}

	base := strings.TrimSuffix(filepath.Base(r.cfg.InputFile), ext)
	outputPath := filepath.Join(filepath.Dir(r.cfg.InputFile), fmt.Sprintf("%s-%s%s", base, book.BookflowID, ext))
	if err := fileutil.MoveFile(staged, outputPath); err != nil {
		return "", Wrap(ErrConfiguration, stepDownload, "place artifact", err)
	}
	log.Info("artifact downloaded",
		logging.String("output", outputPath),
		logging.Int("bytes", len(data)))
	return outputPath, nil
}

func (r *Runner) cleanup(ctx context.Context, log *slog.Logger, book api.Book, result *Result) error {
	if r.cfg.Workflow.KeepRemote {
		result.Kept = true
		result.ContinuationURL = r.client.ContinuationURL(book)
		log.Info("remote job retained", logging.String("continuation_url", result.ContinuationURL))
		return nil
	}
	if err := r.client.DeleteBook(ctx, book.ID); err != nil {
		return Wrap(ErrTransport, stepCleanup, "artifact saved but remote job not deleted", err)
	}
	log.Info("remote job deleted", logging.String("book_id", book.ID))
	return nil
}

func (r *Runner) notify(event notifications.Event, message string) {
	// Notification failures never change the run's outcome.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.notifier.Publish(ctx, event, message); err != nil {
		r.logger.Warn("notification failed", logging.Error(err))
	}
}
