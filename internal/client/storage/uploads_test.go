package storage

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sortedstorage/sortedstorage-cli/internal/client/api"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/models"
	"github.com/sortedstorage/sortedstorage-cli/internal/client/notify"
	"github.com/sortedstorage/sortedstorage-cli/internal/common"
)

func findUpload(t *testing.T, s *Store, id string) UploadItem {
	t.Helper()
	for _, it := range s.Uploads().Get() {
		if it.ID == id {
			return it
		}
	}
	t.Fatalf("upload %s not in queue", id)
	return UploadItem{}
}

func TestUploadFiles_EmptyBatchIsNoop(t *testing.T) {
	f := &fakeAPI{}
	s := New(f, notify.New(nil), nil, nil)

	assert.Nil(t, s.UploadFiles(context.Background(), nil, ""))
	assert.Zero(t, f.listCalls)
}

func TestUploadProgress_Monotonic(t *testing.T) {
	f := &fakeAPI{}
	f.uploadFn = func(ctx context.Context, req api.UploadRequest) (*models.Item, error) {
		// The 40 after 90 simulates an out-of-order callback.
		for _, pct := range []int{10, 40, 90, 40, 100} {
			req.OnProgress(pct)
		}
		return &models.Item{ID: "srv-1", Name: req.Name, Type: models.ItemTypeFile}, nil
	}
	s := New(f, notify.New(nil), nil, nil)

	var observed []int
	unsub := s.Uploads().Subscribe(func(queue []UploadItem) {
		if len(queue) == 1 && queue[0].Status == UploadUploading {
			observed = append(observed, queue[0].Progress)
		}
	})
	defer unsub()

	ids := s.UploadFiles(context.Background(), []UploadRequest{
		{Name: "a.txt", Content: strings.NewReader("hi"), Size: 2},
	}, "")
	require.Len(t, ids, 1)

	for i := 1; i < len(observed); i++ {
		assert.GreaterOrEqual(t, observed[i], observed[i-1], "progress regressed at %d", i)
	}

	it := findUpload(t, s, ids[0])
	assert.Equal(t, UploadCompleted, it.Status)
	assert.Equal(t, 100, it.Progress)
	require.NotNil(t, it.Uploaded)
	assert.Equal(t, "srv-1", it.Uploaded.ID)
}

func TestUploadBatch_FailureIsIsolated(t *testing.T) {
	f := &fakeAPI{}
	f.uploadFn = func(ctx context.Context, req api.UploadRequest) (*models.Item, error) {
		if req.Name == "bad.txt" {
			return nil, errors.New("checksum mismatch")
		}
		return &models.Item{ID: "srv-" + req.Name, Name: req.Name, Type: models.ItemTypeFile}, nil
	}
	center := notify.New(nil)
	rec := &fakeRecorder{}
	s := New(f, center, rec, nil)

	ids := s.UploadFiles(context.Background(), []UploadRequest{
		{Name: "good.txt", Content: strings.NewReader("ok"), Size: 2},
		{Name: "bad.txt", Content: strings.NewReader("no"), Size: 2},
	}, "")
	require.Len(t, ids, 2)

	good := findUpload(t, s, ids[0])
	bad := findUpload(t, s, ids[1])
	assert.Equal(t, UploadCompleted, good.Status)
	assert.Equal(t, UploadError, bad.Status)
	assert.Contains(t, bad.Error, "checksum mismatch")

	errs := errorNotifications(center)
	require.Len(t, errs, 1, "one error toast per failed file")
	assert.Contains(t, errs[0].Message, "bad.txt")

	require.Len(t, rec.accesses, 1, "only the successful upload is recorded")
	assert.Equal(t, models.AccessEdit, rec.accesses[0].Access)

	assert.Equal(t, 1, f.listCalls, "the directory reloads once after the batch")
}

func TestCancelUpload_TerminalAndGuarded(t *testing.T) {
	f := &fakeAPI{}
	progressCh := make(chan func(int), 1)
	f.uploadFn = func(ctx context.Context, req api.UploadRequest) (*models.Item, error) {
		req.OnProgress(10)
		progressCh <- req.OnProgress
		<-ctx.Done()
		return nil, ctx.Err()
	}
	center := notify.New(nil)
	s := New(f, center, nil, nil)

	done := make(chan []string, 1)
	go func() {
		done <- s.UploadFiles(context.Background(), []UploadRequest{
			{Name: "big.bin", Content: strings.NewReader("x"), Size: 1},
		}, "")
	}()

	onProgress := <-progressCh

	var id string
	require.Eventually(t, func() bool {
		queue := s.Uploads().Get()
		if len(queue) != 1 || queue[0].Status != UploadUploading {
			return false
		}
		id = queue[0].ID
		return true
	}, time.Second, 5*time.Millisecond)

	s.CancelUpload(id)
	ids := <-done
	require.Equal(t, []string{id}, ids)

	it := findUpload(t, s, id)
	assert.Equal(t, UploadError, it.Status)
	assert.Equal(t, common.ErrUploadCancelled.Error(), it.Error)

	// A late callback from the aborted attempt must not move the bar.
	onProgress(99)
	it = findUpload(t, s, id)
	assert.Equal(t, 10, it.Progress)

	assert.Empty(t, errorNotifications(center), "cancellation is not surfaced as an error")
}

func TestCancelPendingUpload_NeverReachesServer(t *testing.T) {
	f := &fakeAPI{}
	started := make(chan struct{})
	release := make(chan struct{})
	var uploadedNames []string
	f.uploadFn = func(ctx context.Context, req api.UploadRequest) (*models.Item, error) {
		uploadedNames = append(uploadedNames, req.Name)
		if req.Name == "first.txt" {
			close(started)
			<-release
		}
		return &models.Item{ID: "srv-" + req.Name, Name: req.Name, Type: models.ItemTypeFile}, nil
	}
	center := notify.New(nil)
	s := New(f, center, nil, nil)

	done := make(chan []string, 1)
	go func() {
		done <- s.UploadFiles(context.Background(), []UploadRequest{
			{Name: "first.txt", Content: strings.NewReader("a"), Size: 1},
			{Name: "second.txt", Content: strings.NewReader("b"), Size: 1},
		}, "")
	}()

	<-started

	var pendingID string
	require.Eventually(t, func() bool {
		for _, it := range s.Uploads().Get() {
			if it.Name == "second.txt" && it.Status == UploadPending {
				pendingID = it.ID
				return true
			}
		}
		return false
	}, time.Second, 5*time.Millisecond)

	s.CancelUpload(pendingID)
	close(release)
	<-done

	assert.Equal(t, []string{"first.txt"}, uploadedNames, "the cancelled item is never uploaded")

	it := findUpload(t, s, pendingID)
	assert.Equal(t, UploadError, it.Status)
	assert.Equal(t, common.ErrUploadCancelled.Error(), it.Error)
	assert.Empty(t, errorNotifications(center))
}

func TestClearFinishedUploads(t *testing.T) {
	f := &fakeAPI{}
	f.uploadFn = func(ctx context.Context, req api.UploadRequest) (*models.Item, error) {
		if req.Name == "bad.txt" {
			return nil, errors.New("boom")
		}
		return &models.Item{ID: "srv-1", Name: req.Name, Type: models.ItemTypeFile}, nil
	}
	s := New(f, notify.New(nil), nil, nil)

	s.UploadFiles(context.Background(), []UploadRequest{
		{Name: "good.txt", Content: strings.NewReader("ok"), Size: 2},
		{Name: "bad.txt", Content: strings.NewReader("no"), Size: 2},
	}, "")
	require.Len(t, s.Uploads().Get(), 2)

	s.ClearFinishedUploads()
	assert.Empty(t, s.Uploads().Get())
}
