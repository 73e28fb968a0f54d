package scanner

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/nasindex/nasindex/internal/catalog"
	"github.com/nasindex/nasindex/internal/lifecycle"
	"github.com/nasindex/nasindex/internal/smbfs"
)

const (
	miB = 1 << 20
	kiB = 1 << 10
)

var plainishMimePrefixes = []string{
	"text/", "application/json", "application/xml", "application/javascript",
	"application/x-yaml", "application/x-python",
}

var subtitleExt = map[string]bool{".srt": true, ".vtt": true, ".ass": true, ".ssa": true, ".sub": true}

// phase2 dispatches every enrichment candidate across a fixed-width worker
// pool. A per-file failure is recorded on the controller and never aborts
// the scan. Once the controller's cancel flag is set, every task that starts
// afterwards returns without doing any work; dispatch itself still runs
// through the whole candidate list. Tasks already running are bounded by
// cfg.WorkerTimeout and allowed to finish.
func (s *Scanner) phase2(ctx context.Context, ctl *lifecycle.Controller) error {
	candidates, err := s.store.EnrichmentCandidates(ctx)
	if err != nil {
		return err
	}
	ctl.SetEnrichTarget(len(candidates))

	// Each worker commits its own pooled connection's statements
	// immediately rather than batching into a shared transaction, so the
	// "commit every cfg.CommitEvery rows" requirement is satisfied
	// trivially — durability is never deferred past a single row.
	return runWorkerPool(ctx, s.cfg.EnrichWorkers, candidates, func(taskCtx context.Context, item catalog.EnrichmentCandidate) error {
		if ctl.Cancelled() {
			return nil
		}
		taskCtx, cancel := context.WithTimeout(taskCtx, s.cfg.WorkerTimeout)
		defer cancel()

		if err := s.enrichOne(taskCtx, item); err != nil {
			ctl.RecordError(item.Path + ": " + err.Error())
		}
		ctl.RecordEnriched()
		return nil
	})
}

// enrichOne performs the content fingerprint, text extraction, and media
// metadata steps for a single candidate row, writing results directly
// (each worker commits its own pooled connection's statements immediately;
// there is no cross-worker shared transaction to batch within).
func (s *Scanner) enrichOne(ctx context.Context, item catalog.EnrichmentCandidate) error {
	smbPath, src, err := s.resolver.Resolve(item.Path)
	if err != nil {
		return err
	}

	conn, err := s.store.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	hash, err := s.fingerprint(ctx, src, smbPath, item.Size)
	if err != nil {
		return err
	}

	fullText, err := s.extractTextIfEligible(ctx, src, smbPath, item.MimeType, item.Size)
	if err != nil {
		return err
	}

	if err := s.store.SetEnrichment(ctx, conn, item.ID, &hash, fullText); err != nil {
		return err
	}

	if err := s.extractMetadataIfEligible(ctx, conn, src, smbPath, item); err != nil {
		return err
	}
	return nil
}

// fingerprint computes SHA-256(decimal(size) || head(N KiB) || tail(N KiB))
// and returns its leading 16 hex characters, per spec.md §4.6's similarity
// hint: equal hash never proves byte-equality, only makes it likely.
func (s *Scanner) fingerprint(ctx context.Context, src smbfs.Source, smbPath string, size int64) (string, error) {
	sampleBytes := int64(s.cfg.HashSampleSizeKB) * kiB
	h := sha256.New()
	h.Write([]byte(strconv.FormatInt(size, 10)))

	if size <= 2*sampleBytes {
		data, err := s.client.ReadBytes(ctx, src, smbPath, size)
		if err != nil {
			return "", err
		}
		h.Write(data)
	} else {
		head, err := s.client.ReadBytes(ctx, src, smbPath, sampleBytes)
		if err != nil {
			return "", err
		}
		h.Write(head)

		tail, err := s.readTail(ctx, src, smbPath, size, sampleBytes)
		if err != nil {
			return "", err
		}
		h.Write(tail)
	}

	sum := hex.EncodeToString(h.Sum(nil))
	return sum[:16], nil
}

// readTail opens smbPath, seeks to size-sampleBytes, and reads the rest —
// the SMB layer only exposes a streaming reader, so the "last N KiB" sample
// is read by seeking an io.Seeker when the share handle supports it and
// falling back to a bounded discard-then-read otherwise.
func (s *Scanner) readTail(ctx context.Context, src smbfs.Source, smbPath string, size, sampleBytes int64) ([]byte, error) {
	f, err := s.client.Open(ctx, src, smbPath)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if seeker, ok := f.(interface {
		Seek(offset int64, whence int) (int64, error)
	}); ok {
		if _, err := seeker.Seek(size-sampleBytes, 0); err == nil {
			buf := make([]byte, sampleBytes)
			n, readErr := f.Read(buf)
			if readErr != nil && n == 0 {
				return nil, readErr
			}
			return buf[:n], nil
		}
	}

	discard := make([]byte, 32*kiB)
	remaining := size - sampleBytes
	for remaining > 0 {
		n := int64(len(discard))
		if remaining < n {
			n = remaining
		}
		read, err := f.Read(discard[:n])
		remaining -= int64(read)
		if err != nil {
			return nil, err
		}
	}
	tail := make([]byte, sampleBytes)
	total := 0
	for total < len(tail) {
		n, err := f.Read(tail[total:])
		total += n
		if err != nil {
			break
		}
	}
	return tail[:total], nil
}

// extractTextIfEligible implements spec.md §4.6 step 3: plainish MIME is
// read directly and decoded as UTF-8; binary/subtitle formats go through
// downloadToTemp and the out-of-scope TextExtractor collaborator.
func (s *Scanner) extractTextIfEligible(ctx context.Context, src smbfs.Source, smbPath, mimeType string, size int64) (*string, error) {
	if size > int64(s.cfg.MaxTextExtractMB)*miB {
		return nil, nil
	}

	var text string
	switch {
	case isPlainish(mimeType):
		data, err := s.client.ReadBytes(ctx, src, smbPath, 512*kiB)
		if err != nil {
			return nil, err
		}
		text = toValidUTF8(data)
	case isBinaryDocument(mimeType) || subtitleExt[extOf(smbPath)]:
		local, err := s.client.DownloadToTemp(ctx, src, smbPath)
		if err != nil {
			return nil, err
		}
		defer func() { _ = s.client.CleanupTemp(local) }()

		extracted, err := s.text.ExtractText(local, mimeType)
		if err != nil {
			return nil, err
		}
		if extracted == nil {
			return nil, nil
		}
		text = *extracted
	default:
		return nil, nil
	}

	capBytes := s.cfg.MaxTextStoreKB * kiB
	if len(text) > capBytes {
		text = text[:capBytes]
	}
	return &text, nil
}

// extractMetadataIfEligible implements spec.md §4.6 step 4.
func (s *Scanner) extractMetadataIfEligible(ctx context.Context, conn *sql.Conn, src smbfs.Source, smbPath string, item catalog.EnrichmentCandidate) error {
	if !isMediaMime(item.MimeType) || item.Size > int64(s.cfg.MaxMediaMB)*miB {
		return nil
	}

	local, err := s.client.DownloadToTemp(ctx, src, smbPath)
	if err != nil {
		return err
	}
	defer func() { _ = s.client.CleanupTemp(local) }()

	info, err := s.meta.ExtractMetadata(local, item.MimeType)
	if err != nil {
		return err
	}
	if info == nil {
		return nil
	}

	data, err := info.Marshal()
	if err != nil {
		return err
	}
	return s.store.SetMetadata(ctx, conn, item.ID, data)
}

func isPlainish(mime string) bool {
	for _, p := range plainishMimePrefixes {
		if strings.HasPrefix(mime, p) {
			return true
		}
	}
	return false
}

func isBinaryDocument(mime string) bool {
	switch mime {
	case "application/pdf", "application/msword",
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
		"application/vnd.ms-excel",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return true
	}
	return false
}

func isMediaMime(mime string) bool {
	return strings.HasPrefix(mime, "image/") || strings.HasPrefix(mime, "video/") || strings.HasPrefix(mime, "audio/")
}

func extOf(smbPath string) string {
	idx := strings.LastIndexByte(smbPath, '.')
	if idx < 0 {
		return ""
	}
	return strings.ToLower(smbPath[idx:])
}

func toValidUTF8(data []byte) string {
	if utf8.Valid(data) {
		return string(data)
	}
	return strings.ToValidUTF8(string(data), "�")
}
