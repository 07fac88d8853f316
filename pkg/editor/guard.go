package editor

import (
	"context"
	"fmt"
	"strings"

	"github.com/quiby-ai/staffdesk/pkg/employee"
	"github.com/quiby-ai/staffdesk/pkg/obs"
)

// Guard asks before leaving an edit view that holds unsaved changes.
type Guard struct {
	Confirmer Confirmer
}

// LeavePrompt returns the question to ask before leaving v. It reports
// false for clean or completed views, which may be left without asking.
func LeavePrompt(v View) (string, bool) {
	if !v.Dirty || v.Completed {
		return "", false
	}
	name := strings.TrimSpace(v.Values[employee.FieldName])
	if name == "" {
		name = unnamed
	}
	return fmt.Sprintf(leavePrompt, name), true
}

// CanDeactivate reports whether navigation away from v may proceed. Clean
// or completed views always may; dirty ones need confirmation.
func (g Guard) CanDeactivate(ctx context.Context, v View) bool {
	prompt, ask := LeavePrompt(v)
	if !ask {
		return true
	}
	ok := g.Confirmer.Confirm(ctx, prompt)
	if !ok {
		obs.Event(ctx, "editor.leave", obs.StatusRejected)
	}
	return ok
}
