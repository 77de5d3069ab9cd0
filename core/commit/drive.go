package commit

import (
	"context"
	"slices"
	"strings"

	"github.com/huangsam/svncoord/internal/contract"
)

// PathHandler emits the editor calls for one commit path. It returns true when it
// left a directory open that the driver must close.
type PathHandler func(ctx context.Context, path string, editor contract.Editor) (bool, error)

// DriveEditor walks paths in tree order, opening and closing the intermediate
// directories around each handler call. The root is opened by the driver unless
// "" is one of the paths, in which case the handler must open it.
func DriveEditor(ctx context.Context, editor contract.Editor, paths []string, rev int64, handler PathHandler) error {
	if len(paths) == 0 || editor == nil || handler == nil {
		return nil
	}
	sorted := slices.Clone(paths)
	contract.SortPaths(sorted)

	index, depth := 0, 0
	lastPath, haveLast := "", false
	if sorted[0] == "" {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		if _, err := handler(ctx, "", editor); err != nil {
			return err
		}
		haveLast = true
		index++
	} else if err := editor.OpenRoot(ctx, rev); err != nil {
		return err
	}
	depth++

	for ; index < len(sorted); index++ {
		if err := contract.CheckCancelled(ctx); err != nil {
			return err
		}
		commitPath := sorted[index]
		common := ""
		if haveLast && lastPath != "" {
			common = contract.CommonAncestor(commitPath, lastPath)
		}
		if haveLast {
			for lastPath != common {
				if err := editor.CloseDir(ctx); err != nil {
					return err
				}
				depth--
				lastPath = contract.PathRemoveTail(lastPath)
			}
		}

		rel := strings.TrimPrefix(commitPath[len(common):], "/")
		for _, name := range strings.Split(rel, "/") {
			common = contract.JoinPath(common, name)
			if common == commitPath {
				break
			}
			if err := editor.OpenDir(ctx, common, rev); err != nil {
				return err
			}
			depth++
		}

		opened, err := handler(ctx, commitPath, editor)
		if err != nil {
			return err
		}
		haveLast = true
		switch {
		case opened:
			lastPath = commitPath
			depth++
		case index+1 < len(sorted):
			lastPath = contract.PathRemoveTail(commitPath)
		default:
			lastPath = commitPath
		}
	}

	for ; depth > 0; depth-- {
		if err := editor.CloseDir(ctx); err != nil {
			return err
		}
	}
	return nil
}
