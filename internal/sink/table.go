package sink

import (
	"strings"
	"time"
)

// Columns is the notes table layout shared by the SQL sinks. The names
// match the apple_* columns other forensic tooling already reads.
var Columns = []string{
	"apple_id",
	"apple_title",
	"apple_snippet",
	"apple_folder",
	"apple_created",
	"apple_last_modified",
	"apple_data",
	"apple_attachment_id",
	"apple_attachment_path",
	"apple_account_description",
	"apple_account_identifier",
	"apple_account_username",
	"apple_version",
	"apple_user",
	"apple_source",
}

// Row returns rec's values in Columns order. Timestamps are RFC 3339 UTC
// strings; zero times become empty strings.
func (r Record) Row() []any {
	return []any{
		r.ID,
		r.Title,
		r.Snippet,
		r.Folder,
		formatTime(r.Created),
		formatTime(r.Modified),
		r.HTML,
		strings.Join(r.AttachmentIDs, ", "),
		strings.Join(r.AttachmentPaths, ", "),
		r.Account,
		r.AccountID,
		r.AccountUser,
		r.Version,
		r.User,
		r.Source,
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}
