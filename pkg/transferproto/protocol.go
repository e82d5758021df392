// Package transferproto описывает HTTP-протокол возобновляемой загрузки: пути, заголовки,
// формат Content-Range/Range и таксономию ошибок, общую для клиента и сервера.
package transferproto

// Параметры REST-протокола загрузки и выдачи артефактов.
const (
	UploadPathFormat   = "%s/upload/%s"
	DownloadPathFormat = "%s/download/%s"

	HeaderContentRange = "Content-Range"
	HeaderRange        = "Range"
	HeaderAcceptRanges = "Accept-Ranges"
	HeaderStoredSize   = "X-Size"
	HeaderSession      = "X-Upload-Session"

	ContentTypeOctetStream = "application/octet-stream"
	RangeUnitBytes         = "bytes"

	// DefaultChunkSize — размер чанка клиента по умолчанию (1 MiB).
	DefaultChunkSize int64 = 1 << 20
	// UnknownTotal обозначает `*` в поле total заголовка Content-Range.
	UnknownTotal int64 = -1
)
