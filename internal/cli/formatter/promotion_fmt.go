package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/ascent/internal/service"
)

// RenderPromotionReport summarizes a worker run.
func RenderPromotionReport(r *service.PromotionReport) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s  %s\n", Dim("AS OF   "), r.AsOf.Format(time.RFC3339)))
	b.WriteString(fmt.Sprintf("%s  %d\n", Dim("ELIGIBLE"), r.Eligible))
	b.WriteString(fmt.Sprintf("%s  %s\n", Dim("MIGRATED"), StyleGreen.Render(fmt.Sprint(len(r.Migrated)))))
	if len(r.Resumed) > 0 {
		b.WriteString(fmt.Sprintf("%s  %d\n", Dim("RESUMED "), len(r.Resumed)))
	}
	if len(r.Failed) == 0 {
		b.WriteString(fmt.Sprintf("%s  0\n", Dim("FAILED  ")))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("%s  %s\n\n", Dim("FAILED  "), StyleRed.Render(fmt.Sprint(len(r.Failed)))))
	rows := make([][]string, 0, len(r.Failed))
	for _, f := range r.Failed {
		rows = append(rows, []string{TruncID(f.StepID), string(f.Stage), f.Err.Error()})
	}
	b.WriteString(RenderTable([]string{"STEP", "STAGE", "ERROR"}, rows))
	return b.String()
}
