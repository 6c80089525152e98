package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/alexanderramin/ascent/internal/repository"
	"github.com/alexanderramin/ascent/internal/service"
)

// rootParent names the ranges' pseudo-parent on the command line.
const rootParent = "root"

// resolveNodeID resolves a node identifier which can be a full id or a
// unique id prefix, as printed by the tree command.
func resolveNodeID(ctx context.Context, app *App, input string) (string, error) {
	tree, err := app.Hierarchy.Load(ctx, false)
	if err != nil {
		return "", err
	}
	var ids []string
	collectIDs(tree, &ids)
	return matchPrefix("node", input, ids)
}

func collectIDs(nodes []*service.TreeNode, out *[]string) {
	for _, n := range nodes {
		*out = append(*out, n.Node.ID)
		collectIDs(n.Children, out)
	}
}

// resolveParentID is resolveNodeID that also accepts "root" (or nothing) for
// the ranges' level.
func resolveParentID(ctx context.Context, app *App, input string) (string, error) {
	if input == "" || input == rootParent {
		return "", nil
	}
	return resolveNodeID(ctx, app, input)
}

// resolveListID resolves a task list by full id, unique id prefix, or exact
// name.
func resolveListID(ctx context.Context, app *App, input string) (string, error) {
	lists, err := app.Lists.ListByOwner(ctx, app.Owner)
	if err != nil {
		return "", fmt.Errorf("listing task lists: %w", err)
	}
	ids := make([]string, 0, len(lists))
	for _, l := range lists {
		if l.Name == input {
			return l.ID, nil
		}
		ids = append(ids, l.ID)
	}
	return matchPrefix("task list", input, ids)
}

func matchPrefix(kind, input string, ids []string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("%s id is required", kind)
	}
	var matches []string
	for _, id := range ids {
		if id == input {
			return id, nil
		}
		if strings.HasPrefix(id, input) {
			matches = append(matches, id)
		}
	}
	switch len(matches) {
	case 0:
		return "", fmt.Errorf("%s %q: %w", kind, input, repository.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return "", fmt.Errorf("%s prefix %q is ambiguous (%d matches)", kind, input, len(matches))
	}
}
