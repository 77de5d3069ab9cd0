package contract

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/svncoord/schema"
)

// Color variables for console output.
var (
	AddedColor    = color.New(color.FgGreen, color.Bold) // AddedColor marks additions.
	DeletedColor  = color.New(color.FgRed, color.Bold)   // DeletedColor marks deletions.
	ModifiedColor = color.New(color.FgYellow)            // ModifiedColor marks content or property changes.
	InfoColor     = color.New(color.FgCyan)              // InfoColor marks informational rows.
)

// GetPlainActions returns the compact status letters of a commit item, in the
// column order A D M P C L.
func GetPlainActions(item schema.CommitItem) string {
	var b strings.Builder
	flags := []struct {
		set    bool
		letter byte
	}{
		{item.Added, 'A'},
		{item.Deleted, 'D'},
		{item.ContentsModified, 'M'},
		{item.PropertiesModified, 'P'},
		{item.Copied, 'C'},
		{item.Locked, 'L'},
	}
	for _, f := range flags {
		if f.set {
			b.WriteByte(f.letter)
		}
	}
	return b.String()
}

// GetColorAction returns a colored label for a tree change action.
func GetColorAction(action schema.ChangeAction) string {
	text := string(action)
	switch action {
	case schema.ChangeAdded:
		return AddedColor.Sprint(text)
	case schema.ChangeDeleted:
		return DeletedColor.Sprint(text)
	case schema.ChangeReplaced:
		return DeletedColor.Sprint(text)
	default:
		return ModifiedColor.Sprint(text)
	}
}

// GetColorStatus returns a colored label for a journal status.
func GetColorStatus(status schema.TxnStatus) string {
	text := string(status)
	switch status {
	case schema.TxnCommitted:
		return AddedColor.Sprint(text)
	case schema.TxnFailed, schema.TxnAborted:
		return DeletedColor.Sprint(text)
	default:
		return InfoColor.Sprint(text)
	}
}

// SelectOutputFile returns the appropriate file handle for output, based on the provided
// file path. It falls back to os.Stdout when no path is given.
func SelectOutputFile(filePath string) (*os.File, error) {
	if filePath == "" {
		return os.Stdout, nil
	}
	return os.Create(filePath)
}

// LogFatal logs an error and exits the program.
func LogFatal(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Fatal %s: %v\n", msg, err)
	os.Exit(1)
}

// LogWarn logs a warning message to stderr.
func LogWarn(msg string, err error) {
	_, _ = fmt.Fprintf(os.Stderr, "Warn %s: %v\n", msg, err)
}

// TruncatePath truncates a file path to a maximum width with ellipsis prefix.
// Requires maxWidth > 3 to ensure there's space for both the "..." prefix and at least one character of content.
func TruncatePath(path string, maxWidth int) string {
	runes := []rune(path)
	if len(runes) > maxWidth && maxWidth > 3 {
		return "..." + string(runes[len(runes)-maxWidth+3:])
	}
	return path
}

// ParseBoolString parses a string value into a boolean.
// Accepts "yes", "no", "true", "false", "1", "0" (case-insensitive).
// Returns an error for invalid values.
func ParseBoolString(s string) (bool, error) {
	switch strings.ToLower(s) {
	case "yes", "true", "1":
		return true, nil
	case "no", "false", "0":
		return false, nil
	default:
		return false, fmt.Errorf("invalid boolean string: %s (expected yes/no/true/false/1/0)", s)
	}
}

// Checksum returns the hex MD5 digest used to verify streamed file texts.
func Checksum(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

// ChecksumReader wraps r so that everything read through it is digested. The
// returned func gives the hex MD5 of the bytes read so far.
func ChecksumReader(r io.Reader) (io.Reader, func() string) {
	h := md5.New()
	return io.TeeReader(r, h), func() string { return sumHex(h) }
}

func sumHex(h hash.Hash) string {
	return hex.EncodeToString(h.Sum(nil))
}
