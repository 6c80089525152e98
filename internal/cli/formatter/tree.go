package formatter

import (
	"fmt"
	"strings"
	"time"

	"github.com/alexanderramin/ascent/internal/domain"
	"github.com/alexanderramin/ascent/internal/service"
	"github.com/charmbracelet/lipgloss"
)

// TreeItem represents a single node in a tree display.
type TreeItem struct {
	ID    string
	Title string
	Level domain.Level
	// Guides holds, per ancestor depth below the root, whether a vertical
	// connector continues past this line.
	Guides []bool
	IsLast bool
	Done   bool
	Detail string
}

const (
	treeBranch = "├─ "
	treeCorner = "└─ "
	treePipe   = "│  "
	treeBlank  = "   "
)

// FlattenHierarchy walks a hierarchy snapshot depth-first into tree lines.
// Staged steps carry their trigger as detail.
func FlattenHierarchy(tree []*service.TreeNode, now time.Time) []TreeItem {
	var items []TreeItem
	var walk func(nodes []*service.TreeNode, guides []bool)
	walk = func(nodes []*service.TreeNode, guides []bool) {
		for i, tn := range nodes {
			n := tn.Node
			last := i == len(nodes)-1
			item := TreeItem{
				ID:     n.ID,
				Title:  n.Title,
				Level:  n.Level,
				Guides: append([]bool(nil), guides...),
				IsLast: last,
				Done:   n.Completed,
			}
			switch {
			case n.Staged():
				item.Detail = "→ " + HumanDate(n.ScheduledMoveAt.In(now.Location()), now)
			case n.Tag != nil:
				item.Detail = "#" + *n.Tag
			case n.DurationMin > 0:
				item.Detail = fmt.Sprintf("%dm", n.DurationMin)
			}
			items = append(items, item)

			var next []bool
			if n.Level != domain.LevelRange {
				next = append(append([]bool(nil), guides...), !last)
			}
			walk(tn.Children, next)
		}
	}
	walk(tree, nil)
	return items
}

// RenderTree renders TreeItems as an indented tree using box-drawing
// connectors. Ranges print flush left; done items get a green ✔ prefix and
// detail badges are right-aligned.
func RenderTree(items []TreeItem) string {
	if len(items) == 0 {
		return ""
	}

	type lineInfo struct {
		content string
		badge   string
	}

	lines := make([]lineInfo, len(items))
	maxContentWidth := 0

	for idx, item := range items {
		var prefix strings.Builder
		if item.Level != domain.LevelRange {
			for _, cont := range item.Guides {
				if cont {
					prefix.WriteString(treePipe)
				} else {
					prefix.WriteString(treeBlank)
				}
			}
			if item.IsLast {
				prefix.WriteString(treeCorner)
			} else {
				prefix.WriteString(treeBranch)
			}
		}

		title := LevelStyle(item.Level).Render(item.Title)
		statusPrefix := ""
		if item.Done {
			statusPrefix = StyleGreen.Render("✔ ")
			title = Dim(item.Title)
		}

		content := prefix.String() + statusPrefix + title + " " + TruncID(item.ID)
		lines[idx].content = content
		if item.Detail != "" {
			lines[idx].badge = StyleBlue.Render(fmt.Sprintf("[ %s ]", item.Detail))
		}
		maxContentWidth = max(maxContentWidth, lipgloss.Width(content))
	}

	var b strings.Builder
	for _, li := range lines {
		if li.badge == "" {
			b.WriteString(li.content + "\n")
			continue
		}
		pad := max(maxContentWidth-lipgloss.Width(li.content), 0)
		b.WriteString(li.content + strings.Repeat(" ", pad) + "  " + li.badge + "\n")
	}
	return b.String()
}
