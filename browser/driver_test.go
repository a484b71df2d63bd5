package browser

import (
	"context"
	"errors"
	"sync"
)

// fakeDriver scripts the automation engine for tests.
type fakeDriver struct {
	mu         sync.Mutex
	pages      []*fakePage
	closed     int
	newPageErr error
}

func (d *fakeDriver) NewPage(ctx context.Context) (Page, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.newPageErr != nil {
		return nil, d.newPageErr
	}
	p := &fakePage{snapshot: "- heading \"Example\" [ref=e1]"}
	d.pages = append(d.pages, p)
	return p, nil
}

func (d *fakeDriver) Close(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.closed++
	return nil
}

func (d *fakeDriver) closeCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

type fakePage struct {
	mu       sync.Mutex
	url      string
	history  []string
	typed    []string
	clicked  []string
	snapshot string
	shot     []byte
	closed   bool
}

func (p *fakePage) Navigate(ctx context.Context, url string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.url != "" {
		p.history = append(p.history, p.url)
	}
	p.url = url
	return nil
}

func (p *fakePage) GoBack(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.history) == 0 {
		return errors.New("no history")
	}
	p.url = p.history[len(p.history)-1]
	p.history = p.history[:len(p.history)-1]
	return nil
}

func (p *fakePage) Snapshot(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.snapshot, nil
}

func (p *fakePage) Click(ctx context.Context, ref string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.clicked = append(p.clicked, ref)
	return nil
}

func (p *fakePage) Type(ctx context.Context, ref, text string, submit bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.typed = append(p.typed, ref+"="+text)
	return nil
}

func (p *fakePage) Screenshot(ctx context.Context) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shot == nil {
		return []byte{0x89, 'P', 'N', 'G'}, nil
	}
	return p.shot, nil
}

func (p *fakePage) Close(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}
