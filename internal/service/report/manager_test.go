package report

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseCommand(t *testing.T) {
	cases := []struct {
		in   string
		want Command
	}{
		{"cancel", Command{Kind: Cancel}},
		{"  CANCEL ", Command{Kind: Cancel}},
		{"Manual", Command{Kind: Manual}},
		{"submit", Command{Kind: Submit}},
		{"change location", Command{Kind: Change, Field: "location"}},
		{"Change Issue Type", Command{Kind: Change, Field: "issue type"}},
		{"change", Command{Kind: Change}},
		{"the bin is overflowing", Command{Kind: FreeText, Text: "the bin is overflowing"}},
		{"please cancel my report", Command{Kind: FreeText, Text: "please cancel my report"}},
	}

	for _, tc := range cases {
		if got := ParseCommand(tc.in); got != tc.want {
			t.Errorf("ParseCommand(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

type recordingSubmitter struct {
	submitted []*Form
	fail      bool
}

func (r *recordingSubmitter) Submit(_ context.Context, _ string, form *Form) error {
	if r.fail {
		return errors.New("sink unavailable")
	}
	copied := *form
	r.submitted = append(r.submitted, &copied)
	return nil
}

func newManager(t *testing.T) (*Manager, *recordingSubmitter) {
	t.Helper()
	sink := &recordingSubmitter{}
	return NewManager(NewMemoryStateStore(), sink), sink
}

func TestManagerFullFlow(t *testing.T) {
	mgr, sink := newManager(t)
	ctx := context.Background()

	if mgr.Active(ctx, "s1") {
		t.Fatal("fresh session must not be active")
	}

	opening, err := mgr.Start(ctx, "s1", "u1")
	if err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if opening != StartMessage {
		t.Errorf("opening = %q", opening)
	}
	if !mgr.Active(ctx, "s1") {
		t.Fatal("session must be active after Start")
	}

	// First three free-text turns fill the fields in order.
	reply, err := mgr.HandleTurn(ctx, "s1", "overflowing bin", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != fieldQuestions[FieldDescription] {
		t.Errorf("after issue type, reply = %q", reply)
	}

	if _, err := mgr.HandleTurn(ctx, "s1", "the bin at the void deck has been full for days", nil); err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}

	reply, err = mgr.HandleTurn(ctx, "s1", "Blk 123 Ang Mo Kio Ave 3", []string{"photo.jpg"})
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if !strings.Contains(reply, "Thanks for the information!") || !strings.Contains(reply, "Blk 123 Ang Mo Kio Ave 3") {
		t.Errorf("completion reply = %q", reply)
	}

	reply, err = mgr.HandleTurn(ctx, "s1", "submit", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != submittedMessage {
		t.Errorf("submit reply = %q", reply)
	}
	if mgr.Active(ctx, "s1") {
		t.Error("session must be inactive after submit")
	}
	if len(sink.submitted) != 1 {
		t.Fatalf("submitted = %d, want 1", len(sink.submitted))
	}
	got := sink.submitted[0]
	if got.IssueType != "overflowing bin" || got.Location != "Blk 123 Ang Mo Kio Ave 3" || len(got.Attachments) != 1 {
		t.Errorf("submitted form = %+v", got)
	}
}

func TestManagerChangeField(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "s2", "u1"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	for _, answer := range []string{"noise", "construction noise at night", "Clementi Ave 2"} {
		if _, err := mgr.HandleTurn(ctx, "s2", answer, nil); err != nil {
			t.Fatalf("HandleTurn err: %v", err)
		}
	}

	reply, err := mgr.HandleTurn(ctx, "s2", "change location", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != "Sure! Please provide the new location." {
		t.Errorf("change reply = %q", reply)
	}

	reply, err = mgr.HandleTurn(ctx, "s2", "Clementi Ave 4", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if !strings.Contains(reply, "Got it! Here is the updated information:") || !strings.Contains(reply, "Clementi Ave 4") {
		t.Errorf("updated reply = %q", reply)
	}

	reply, err = mgr.HandleTurn(ctx, "s2", "change severity", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != changeUnknownMessage {
		t.Errorf("unknown change reply = %q", reply)
	}
}

func TestManagerCancelAndManual(t *testing.T) {
	mgr, sink := newManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "s3", "u1"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	reply, err := mgr.HandleTurn(ctx, "s3", "CANCEL", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != cancelledMessage {
		t.Errorf("cancel reply = %q", reply)
	}
	if mgr.Active(ctx, "s3") {
		t.Error("session must be inactive after cancel")
	}

	if _, err := mgr.Start(ctx, "s4", "u1"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	reply, err = mgr.HandleTurn(ctx, "s4", "manual", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != manualMessage {
		t.Errorf("manual reply = %q", reply)
	}
	if len(sink.submitted) != 0 {
		t.Error("cancel/manual must not submit")
	}
}

func TestManagerSubmitFailureKeepsState(t *testing.T) {
	sink := &recordingSubmitter{fail: true}
	mgr := NewManager(NewMemoryStateStore(), sink)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "s5", "u1"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	reply, err := mgr.HandleTurn(ctx, "s5", "submit", nil)
	if err != nil {
		t.Fatalf("HandleTurn err: %v", err)
	}
	if reply != submitFailedMessage {
		t.Errorf("failed submit reply = %q", reply)
	}
	if !mgr.Active(ctx, "s5") {
		t.Error("state must survive a failed submit")
	}
}

func TestManagerSessionsAreIsolated(t *testing.T) {
	mgr, _ := newManager(t)
	ctx := context.Background()

	if _, err := mgr.Start(ctx, "a", "u1"); err != nil {
		t.Fatalf("Start err: %v", err)
	}
	if mgr.Active(ctx, "b") {
		t.Error("starting one session must not activate another")
	}
}

func TestSQLiteSubmitter(t *testing.T) {
	ctx := context.Background()
	sub, err := NewSQLiteSubmitter(ctx, filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("NewSQLiteSubmitter err: %v", err)
	}
	defer sub.Close()

	form := &Form{
		UserID:      "u1",
		IssueType:   "cleanliness",
		Description: "overflowing bin",
		Location:    "Blk 123",
		Attachments: []string{"photo.jpg"},
	}
	if err := sub.Submit(ctx, "s1", form); err != nil {
		t.Fatalf("Submit err: %v", err)
	}

	var n int
	if err := sub.db.QueryRow(`SELECT COUNT(*) FROM reports WHERE session_id = 's1'`).Scan(&n); err != nil {
		t.Fatalf("count err: %v", err)
	}
	if n != 1 {
		t.Errorf("reports = %d, want 1", n)
	}
}
