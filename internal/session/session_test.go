package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/mcp-pdf-forms/internal/designer"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdffake"
	"github.com/a3tai/mcp-pdf-forms/internal/pdf/pdftest"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newStore(limit int) (*Store, *clock) {
	c := &clock{now: time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)}
	loader := pdffake.Loader(&pdffake.Rasterizer{}, &pdffake.Stamper{})
	return NewStore(loader, Options{MaxSessions: limit, Now: c.Now}), c
}

func TestOpenAndLookup(t *testing.T) {
	s, _ := newStore(0)

	d, err := s.OpenDesigner()
	require.NoError(t, err)
	_, err = uuid.Parse(d.ID)
	require.NoError(t, err)
	assert.Equal(t, KindDesigner, d.Kind)

	f, err := s.OpenFiller()
	require.NoError(t, err)
	assert.NotEqual(t, d.ID, f.ID)

	_, err = s.Designer(d.ID)
	assert.NoError(t, err)
	_, err = s.Filler(f.ID)
	assert.NoError(t, err)

	_, err = s.Filler(d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Designer("missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 2, s.Len())
}

func TestSessionsAreIndependent(t *testing.T) {
	s, _ := newStore(0)
	a, _ := s.OpenDesigner()
	b, _ := s.OpenDesigner()

	da, err := s.Designer(a.ID)
	require.NoError(t, err)
	require.NoError(t, da.Do(func(d *designer.Designer) error {
		return d.LoadPDF(context.Background(), "a.pdf", pdftest.Document(t, 1))
	}))

	db, err := s.Designer(b.ID)
	require.NoError(t, err)
	require.NoError(t, db.Do(func(d *designer.Designer) error {
		assert.Nil(t, d.Document())
		return nil
	}))
}

func TestMaxSessions(t *testing.T) {
	s, _ := newStore(1)

	_, err := s.OpenFiller()
	require.NoError(t, err)
	_, err = s.OpenDesigner()
	assert.ErrorIs(t, err, ErrTooMany)
}

func TestCloseAndList(t *testing.T) {
	s, c := newStore(0)
	first, _ := s.OpenDesigner()
	c.Advance(time.Second)
	second, _ := s.OpenFiller()

	list := s.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	assert.True(t, s.Close(first.ID))
	assert.False(t, s.Close(first.ID))
	assert.Equal(t, 1, s.Len())
}

func TestCloseIdle(t *testing.T) {
	s, c := newStore(0)
	stale, _ := s.OpenDesigner()
	c.Advance(time.Hour)
	fresh, _ := s.OpenFiller()
	c.Advance(time.Minute)

	_, err := s.Filler(fresh.ID)
	require.NoError(t, err)

	assert.Equal(t, 1, s.CloseIdle(c.Now().Add(-30*time.Minute)))
	_, err = s.Designer(stale.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.Filler(fresh.ID)
	assert.NoError(t, err)
}

func TestConcurrentAccess(t *testing.T) {
	s, _ := newStore(0)
	info, _ := s.OpenDesigner()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := s.Designer(info.ID)
			if !assert.NoError(t, err) {
				return
			}
			_ = d.Do(func(d *designer.Designer) error {
				d.Status()
				return nil
			})
			_, _ = s.OpenFiller()
			s.List()
		}()
	}
	wg.Wait()
	assert.Equal(t, 17, s.Len())
}
