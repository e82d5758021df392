package transferproto

import (
	"fmt"
	"strconv"
	"strings"
)

// ContentRange — объявленный диапазон чанка из заголовка `Content-Range: bytes a-b/T`.
type ContentRange struct {
	Start int64
	End   int64
	Total int64
}

// Size возвращает длину объявленного диапазона в байтах.
func (c ContentRange) Size() int64 {
	return c.End - c.Start + 1
}

func (c ContentRange) String() string {
	total := "*"
	if c.Total != UnknownTotal {
		total = strconv.FormatInt(c.Total, 10)
	}
	return fmt.Sprintf("%s %d-%d/%s", RangeUnitBytes, c.Start, c.End, total)
}

// ParseContentRange разбирает значение Content-Range запроса на загрузку.
// Total может быть `*`, тогда он равен UnknownTotal.
func ParseContentRange(value string) (ContentRange, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return ContentRange{}, fmt.Errorf("%w: Content-Range header required", ErrMalformedRequest)
	}

	rest, ok := strings.CutPrefix(value, RangeUnitBytes+" ")
	if !ok {
		return ContentRange{}, fmt.Errorf("%w: invalid Content-Range format %q", ErrMalformedRequest, value)
	}
	span, totalStr, ok := strings.Cut(rest, "/")
	if !ok {
		return ContentRange{}, fmt.Errorf("%w: invalid Content-Range format %q", ErrMalformedRequest, value)
	}
	startStr, endStr, ok := strings.Cut(span, "-")
	if !ok {
		return ContentRange{}, fmt.Errorf("%w: invalid Content-Range format %q", ErrMalformedRequest, value)
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return ContentRange{}, err
	}
	end, err := parseOffset(endStr)
	if err != nil {
		return ContentRange{}, err
	}
	if end < start {
		return ContentRange{}, fmt.Errorf("%w: range end %d before start %d", ErrMalformedRequest, end, start)
	}

	total := UnknownTotal
	if totalStr != "*" {
		total, err = parseOffset(totalStr)
		if err != nil {
			return ContentRange{}, err
		}
		if end >= total {
			return ContentRange{}, fmt.Errorf("%w: range end %d beyond total %d", ErrMalformedRequest, end, total)
		}
	}

	return ContentRange{Start: start, End: end, Total: total}, nil
}

// FormatUnsatisfiedRange формирует `bytes */N` для ответов 416.
func FormatUnsatisfiedRange(size int64) string {
	return fmt.Sprintf("%s */%d", RangeUnitBytes, size)
}

// ParseUnsatisfiedRange извлекает N из `bytes */N`.
func ParseUnsatisfiedRange(value string) (int64, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), RangeUnitBytes+" */")
	if !ok {
		return 0, fmt.Errorf("%w: unexpected Content-Range %q", ErrMalformedRequest, value)
	}
	return parseOffset(rest)
}

// FormatServedRange формирует Content-Range ответа 206.
func FormatServedRange(start, end, total int64) string {
	return fmt.Sprintf("%s %d-%d/%d", RangeUnitBytes, start, end, total)
}

// RangeSpec — один диапазон из заголовка `Range: bytes=...`.
// End < 0 означает «до последнего байта», Suffix > 0 — форму `bytes=-N`.
type RangeSpec struct {
	Start  int64
	End    int64
	Suffix int64
}

func (r RangeSpec) String() string {
	switch {
	case r.Suffix > 0:
		return fmt.Sprintf("%s=-%d", RangeUnitBytes, r.Suffix)
	case r.End < 0:
		return fmt.Sprintf("%s=%d-", RangeUnitBytes, r.Start)
	default:
		return fmt.Sprintf("%s=%d-%d", RangeUnitBytes, r.Start, r.End)
	}
}

// ParseRange разбирает заголовок Range. Несколько диапазонов не поддерживаются.
func ParseRange(value string) (RangeSpec, error) {
	rest, ok := strings.CutPrefix(strings.TrimSpace(value), RangeUnitBytes+"=")
	if !ok || strings.Contains(rest, ",") {
		return RangeSpec{}, fmt.Errorf("%w: unsupported Range %q", ErrMalformedRequest, value)
	}
	startStr, endStr, ok := strings.Cut(strings.TrimSpace(rest), "-")
	if !ok {
		return RangeSpec{}, fmt.Errorf("%w: unsupported Range %q", ErrMalformedRequest, value)
	}

	if startStr == "" {
		n, err := parseOffset(endStr)
		if err != nil {
			return RangeSpec{}, err
		}
		return RangeSpec{Start: -1, End: -1, Suffix: n}, nil
	}

	start, err := parseOffset(startStr)
	if err != nil {
		return RangeSpec{}, err
	}
	if endStr == "" {
		return RangeSpec{Start: start, End: -1}, nil
	}
	end, err := parseOffset(endStr)
	if err != nil {
		return RangeSpec{}, err
	}
	if end < start {
		return RangeSpec{}, fmt.Errorf("%w: range end %d before start %d", ErrMalformedRequest, end, start)
	}

	return RangeSpec{Start: start, End: end}, nil
}

// Resolve приводит диапазон к абсолютным [start, end] для артефакта длины size.
// Диапазон, выходящий за size, не обрезается: возвращается RangeNotSatisfiableError.
func (r RangeSpec) Resolve(size int64) (int64, int64, error) {
	if r.Suffix > 0 {
		if size == 0 {
			return 0, 0, &RangeNotSatisfiableError{Size: size}
		}
		return max(0, size-r.Suffix), size - 1, nil
	}
	if r.Start < 0 {
		return 0, 0, &RangeNotSatisfiableError{Size: size}
	}

	end := r.End
	if end < 0 {
		end = size - 1
	}
	if r.Start >= size || end >= size {
		return 0, 0, &RangeNotSatisfiableError{Size: size}
	}

	return r.Start, end, nil
}

func parseOffset(s string) (int64, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid byte offset %q", ErrMalformedRequest, s)
	}
	return n, nil
}
