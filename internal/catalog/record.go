package catalog

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// ErrCorruptRecord indicates a backup record file that exists but cannot be
// parsed. Callers treat the owning backup as corrupted, not the catalog.
var ErrCorruptRecord = errors.New("corrupt backup record")

// BytesInvalid is the DATA_BYTES sentinel for "unknown / not computed".
const BytesInvalid int64 = -1

// timeFormat is the quoted timestamp layout used inside record files.
const timeFormat = "2006-01-02 15:04:05"

// LSN is a 64-bit write-ahead log position, printed as two 32-bit hex
// halves separated by a slash ("0/8000028").
type LSN uint64

func (l LSN) String() string {
	return fmt.Sprintf("%x/%08x", uint32(l>>32), uint32(l))
}

// ParseLSN parses the hi/lo hex form, accepting either case.
func ParseLSN(s string) (LSN, error) {
	hi, lo, ok := strings.Cut(s, "/")
	if !ok {
		return 0, fmt.Errorf("invalid LSN %q", s)
	}
	h, err := strconv.ParseUint(hi, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid LSN %q", s)
	}
	l, err := strconv.ParseUint(lo, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid LSN %q", s)
	}
	return LSN(h<<32 | l), nil
}

// Backup is one catalog record: the metadata of a single point-in-time
// backup. Identity is the start timestamp; see EncodeID.
type Backup struct {
	Mode   Mode
	Status Status

	TLI      uint32
	StartLSN LSN
	StopLSN  LSN

	StartTime    time.Time
	EndTime      time.Time // zero = backup never finished
	RecoveryTime time.Time
	RecoveryXID  uint32

	DataBytes       int64 // BytesInvalid = unknown
	BlockSize       uint32
	WALBlockSize    uint32
	ChecksumVersion uint32

	// Stream records whether WAL was streamed inline rather than archived.
	Stream bool

	// Parent is the start timestamp of the backup this one is incremental
	// against; zero for full backups.
	Parent int64
}

// NewBackup returns a record with every field at its "unset" sentinel.
func NewBackup() *Backup {
	return &Backup{
		Mode:      ModeInvalid,
		Status:    StatusInvalid,
		DataBytes: BytesInvalid,
	}
}

// ID returns the backup's catalog key.
func (b *Backup) ID() int64 {
	return b.StartTime.Unix()
}

// Finished reports whether the data copy ever completed; StopLSN is only
// meaningful when it did.
func (b *Backup) Finished() bool {
	return !b.EndTime.IsZero()
}

// Marshal renders the record file: a "# configuration" section followed by
// a "# result" section of ordered KEY=value lines. Optional keys (END_TIME,
// RECOVERY_TIME, DATA_BYTES, PARENT_BACKUP) are omitted when unset.
func (b *Backup) Marshal() []byte {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "# configuration\n")
	fmt.Fprintf(&buf, "BACKUP_MODE=%s\n", b.Mode)

	fmt.Fprintf(&buf, "# result\n")
	fmt.Fprintf(&buf, "TIMELINEID=%d\n", b.TLI)
	fmt.Fprintf(&buf, "START_LSN=%s\n", b.StartLSN)
	fmt.Fprintf(&buf, "STOP_LSN=%s\n", b.StopLSN)
	fmt.Fprintf(&buf, "START_TIME='%s'\n", b.StartTime.Format(timeFormat))
	if !b.EndTime.IsZero() {
		fmt.Fprintf(&buf, "END_TIME='%s'\n", b.EndTime.Format(timeFormat))
	}
	fmt.Fprintf(&buf, "RECOVERY_XID=%d\n", b.RecoveryXID)
	if !b.RecoveryTime.IsZero() {
		fmt.Fprintf(&buf, "RECOVERY_TIME='%s'\n", b.RecoveryTime.Format(timeFormat))
	}
	if b.DataBytes != BytesInvalid {
		fmt.Fprintf(&buf, "DATA_BYTES=%d\n", b.DataBytes)
	}
	fmt.Fprintf(&buf, "BLOCK_SIZE=%d\n", b.BlockSize)
	fmt.Fprintf(&buf, "XLOG_BLOCK_SIZE=%d\n", b.WALBlockSize)
	fmt.Fprintf(&buf, "CHECKSUM_VERSION=%d\n", b.ChecksumVersion)
	fmt.Fprintf(&buf, "STREAM=%d\n", boolToInt(b.Stream))
	fmt.Fprintf(&buf, "STATUS=%s\n", b.Status)
	if b.Parent != 0 {
		fmt.Fprintf(&buf, "PARENT_BACKUP='%s'\n", EncodeID(b.Parent))
	}

	return buf.Bytes()
}

// UnmarshalBackup parses a record file. Section headers and comment lines
// ("#", ";") are skipped; unknown keys are ignored so newer writers stay
// readable. Any malformed required value fails with ErrCorruptRecord.
func UnmarshalBackup(r io.Reader) (*Backup, error) {
	b := NewBackup()

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || line[0] == '#' || line[0] == ';' {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return nil, fmt.Errorf("%w: malformed line %q", ErrCorruptRecord, line)
		}
		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), "'")

		if err := b.setField(key, value); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptRecord, err)
	}
	if b.StartTime.IsZero() {
		return nil, fmt.Errorf("%w: missing START_TIME", ErrCorruptRecord)
	}

	return b, nil
}

func (b *Backup) setField(key, value string) error {
	switch key {
	case "BACKUP_MODE":
		mode, err := ParseMode(value)
		if err != nil {
			return err
		}
		b.Mode = mode
	case "TIMELINEID":
		return parseUint32(value, &b.TLI)
	case "START_LSN":
		lsn, err := ParseLSN(value)
		if err != nil {
			return err
		}
		b.StartLSN = lsn
	case "STOP_LSN":
		lsn, err := ParseLSN(value)
		if err != nil {
			return err
		}
		b.StopLSN = lsn
	case "START_TIME":
		return parseTime(value, &b.StartTime)
	case "END_TIME":
		return parseTime(value, &b.EndTime)
	case "RECOVERY_TIME":
		return parseTime(value, &b.RecoveryTime)
	case "RECOVERY_XID":
		return parseUint32(value, &b.RecoveryXID)
	case "DATA_BYTES":
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return fmt.Errorf("invalid DATA_BYTES %q", value)
		}
		b.DataBytes = n
	case "BLOCK_SIZE":
		return parseUint32(value, &b.BlockSize)
	case "XLOG_BLOCK_SIZE":
		return parseUint32(value, &b.WALBlockSize)
	case "CHECKSUM_VERSION":
		return parseUint32(value, &b.ChecksumVersion)
	case "STREAM":
		b.Stream = value == "1" || strings.EqualFold(value, "true")
	case "STATUS":
		status, err := ParseStatus(value)
		if err != nil {
			return err
		}
		b.Status = status
	case "PARENT_BACKUP":
		parent, err := DecodeID(value)
		if err != nil {
			return err
		}
		b.Parent = parent
	}
	// unknown keys are ignored
	return nil
}

func parseUint32(value string, dst *uint32) error {
	n, err := strconv.ParseUint(value, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid number %q", value)
	}
	*dst = uint32(n)
	return nil
}

func parseTime(value string, dst *time.Time) error {
	t, err := time.ParseInLocation(timeFormat, value, time.Local)
	if err != nil {
		return fmt.Errorf("invalid timestamp %q", value)
	}
	*dst = t
	return nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
