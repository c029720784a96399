package mail

import (
	"context"

	"github.com/vdavid/mailcore/internal/models"
	"github.com/vdavid/mailcore/internal/worker"
)

// Async runs Client operations on a worker pool so a front end never blocks
// on network I/O. Every method returns at once with a future.
type Async struct {
	client Client
	pool   *worker.Pool
}

// NewAsync wraps c. The pool is shared and not closed by Async.
func NewAsync(c Client, pool *worker.Pool) *Async {
	return &Async{client: c, pool: pool}
}

// Validate runs Client.Validate.
func (a *Async) Validate(ctx context.Context) *worker.Future[struct{}] {
	return worker.Submit(a.pool, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.client.Validate(ctx)
	})
}

// ListFolders runs Client.ListFolders.
func (a *Async) ListFolders(ctx context.Context) *worker.Future[[]string] {
	return worker.Submit(a.pool, ctx, a.client.ListFolders)
}

// ListRecentSubjects runs Client.ListRecentSubjects.
func (a *Async) ListRecentSubjects(ctx context.Context, folder string) *worker.Future[[]string] {
	return worker.Submit(a.pool, ctx, func(ctx context.Context) ([]string, error) {
		return a.client.ListRecentSubjects(ctx, folder)
	})
}

// ReadMessage runs Client.ReadMessage.
func (a *Async) ReadMessage(ctx context.Context, folder string, displayIndex int) *worker.Future[*models.MessageContent] {
	return worker.Submit(a.pool, ctx, func(ctx context.Context) (*models.MessageContent, error) {
		return a.client.ReadMessage(ctx, folder, displayIndex)
	})
}

// Download runs Client.Download.
func (a *Async) Download(ctx context.Context, folder string, displayIndex int, filename string) *worker.Future[string] {
	return worker.Submit(a.pool, ctx, func(ctx context.Context) (string, error) {
		return a.client.Download(ctx, folder, displayIndex, filename)
	})
}

// Send runs Client.Send.
func (a *Async) Send(ctx context.Context, to, subject, htmlBody string, attachments []string) *worker.Future[struct{}] {
	return worker.Submit(a.pool, ctx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, a.client.Send(ctx, to, subject, htmlBody, attachments)
	})
}
