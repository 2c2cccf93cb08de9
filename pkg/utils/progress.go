package utils

import (
	"fmt"
	"sync"

	"github.com/pterm/pterm"
)

// Progress renders bulk-step progress as one bar per section. It is safe
// for the concurrent callbacks of the library downloader.
type Progress struct {
	mu      sync.Mutex
	section string
	bar     *pterm.ProgressbarPrinter
}

func (p *Progress) PrintProgress(section string, current int, total int, description string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	// Handle edge cases to prevent negative values
	if total <= 0 {
		total = 1
	}
	current = min(max(current, 0), total)

	if p.bar == nil || p.section != section {
		p.stop()
		bar, err := pterm.DefaultProgressbar.WithTotal(total).WithTitle(section).Start()
		if err != nil {
			return
		}
		p.bar, p.section = bar, section
	}

	p.bar.UpdateTitle(fmt.Sprintf("%s | %s", section, description))
	if delta := current - p.bar.Current; delta > 0 {
		p.bar.Add(delta)
	}
	if current >= total {
		p.stop()
	}
}

func (p *Progress) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stop()
}

func (p *Progress) stop() {
	if p.bar != nil {
		p.bar.Stop()
		p.bar = nil
		p.section = ""
	}
}
