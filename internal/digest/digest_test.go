package digest

import (
	"strings"
	"testing"
	"time"

	"github.com/jkaninda/kituo/internal/domain"
)

func TestRenderEmpty(t *testing.T) {
	got := render(nil)
	if !strings.Contains(got, "No active requests") {
		t.Errorf("empty digest = %q", got)
	}
}

func TestRender(t *testing.T) {
	got := render([]domain.RequestSummary{
		{ID: 3, Type: domain.TypeBlockCard, Priority: domain.PriorityHigh, Status: domain.StatusPending, CreatedAt: time.Now(), ClientName: "Ivan P", ClientPhone: "+1000"},
		{ID: 1, Type: domain.TypeBlockApp, Priority: domain.PriorityLow, Status: domain.StatusProcessing, ClientName: "Maria S", ClientPhone: "+2000"},
	})

	for _, want := range []string{"2 active request", "#3", "block_card", "high priority", "Ivan P", "#1", "Maria S", "/requests"} {
		if !strings.Contains(got, want) {
			t.Errorf("digest missing %q:\n%s", want, got)
		}
	}
}
