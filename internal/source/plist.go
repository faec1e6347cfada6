package source

import (
	"fmt"

	"howett.net/plist"
)

// PlistPath reads the attachment file path out of a keyed-archiver plist:
// the third entry of $objects.
func PlistPath(blob []byte) (string, error) {
	var archive struct {
		Objects []any `plist:"$objects"`
	}
	if _, err := plist.Unmarshal(blob, &archive); err != nil {
		return "", fmt.Errorf("source: attachment plist: %w", err)
	}
	if len(archive.Objects) < 3 {
		return "", fmt.Errorf("source: attachment plist has %d objects", len(archive.Objects))
	}
	path, ok := archive.Objects[2].(string)
	if !ok {
		return "", fmt.Errorf("source: attachment plist object 2 is %T", archive.Objects[2])
	}
	return path, nil
}
