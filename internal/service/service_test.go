package service

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/forge/internal/models"
	"github.com/noah-isme/forge/pkg/ai"
)

type publishedEvent struct {
	subject string
	payload interface{}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, subject string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{subject: subject, payload: payload})
	return p.err
}

type recordingUploader struct {
	names []string
	err   error
}

func (u *recordingUploader) Upload(_ context.Context, name string, reader io.Reader) (string, error) {
	if u.err != nil {
		return "", u.err
	}
	if _, err := io.Copy(io.Discard, reader); err != nil {
		return "", err
	}
	u.names = append(u.names, name)
	return "https://cdn.example.com/" + name, nil
}

type fixedGenerator struct {
	content string
	models  []string
}

func (g *fixedGenerator) Generate(_ context.Context, req ai.GenerateRequest) (ai.GenerateResponse, error) {
	g.models = append(g.models, req.Model)
	return ai.GenerateResponse{Content: g.content, Model: req.Model}, nil
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.BenchmarkRun{}, &models.DatasetBuild{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}
