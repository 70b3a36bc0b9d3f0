package transport

// TransferInfo is the metadata snapshot of one exchange. Times are in
// seconds, sizes in bytes, speeds in bytes per second.
type TransferInfo struct {
	URL                   string  `json:"url"`
	ContentType           string  `json:"content_type"`
	HTTPCode              int     `json:"http_code"`
	HeaderSize            int64   `json:"header_size"`
	RequestSize           int64   `json:"request_size"`
	Filetime              int64   `json:"filetime"`
	SSLVerifyResult       int     `json:"ssl_verify_result"`
	RedirectCount         int     `json:"redirect_count"`
	TotalTime             float64 `json:"total_time"`
	NameLookupTime        float64 `json:"namelookup_time"`
	ConnectTime           float64 `json:"connect_time"`
	PretransferTime       float64 `json:"pretransfer_time"`
	StartTransferTime     float64 `json:"starttransfer_time"`
	RedirectTime          float64 `json:"redirect_time"`
	SizeUpload            int64   `json:"size_upload"`
	SizeDownload          int64   `json:"size_download"`
	SpeedDownload         float64 `json:"speed_download"`
	SpeedUpload           float64 `json:"speed_upload"`
	DownloadContentLength int64   `json:"download_content_length"`
	UploadContentLength   int64   `json:"upload_content_length"`
}

// InfoKeys lists the metadata keys in their canonical order.
var InfoKeys = []string{
	"url",
	"content_type",
	"http_code",
	"header_size",
	"request_size",
	"filetime",
	"ssl_verify_result",
	"redirect_count",
	"total_time",
	"namelookup_time",
	"connect_time",
	"pretransfer_time",
	"starttransfer_time",
	"redirect_time",
	"size_upload",
	"size_download",
	"speed_download",
	"speed_upload",
	"download_content_length",
	"upload_content_length",
}

// Map returns the snapshot keyed by metadata name.
func (i *TransferInfo) Map() map[string]any {
	return map[string]any{
		"url":                     i.URL,
		"content_type":            i.ContentType,
		"http_code":               i.HTTPCode,
		"header_size":             i.HeaderSize,
		"request_size":            i.RequestSize,
		"filetime":                i.Filetime,
		"ssl_verify_result":       i.SSLVerifyResult,
		"redirect_count":          i.RedirectCount,
		"total_time":              i.TotalTime,
		"namelookup_time":         i.NameLookupTime,
		"connect_time":            i.ConnectTime,
		"pretransfer_time":        i.PretransferTime,
		"starttransfer_time":      i.StartTransferTime,
		"redirect_time":           i.RedirectTime,
		"size_upload":             i.SizeUpload,
		"size_download":           i.SizeDownload,
		"speed_download":          i.SpeedDownload,
		"speed_upload":            i.SpeedUpload,
		"download_content_length": i.DownloadContentLength,
		"upload_content_length":   i.UploadContentLength,
	}
}

// Lookup returns a single metadata value by key.
func (i *TransferInfo) Lookup(key string) (any, bool) {
	v, ok := i.Map()[key]
	return v, ok
}

// Clone returns a copy of the snapshot.
func (i *TransferInfo) Clone() *TransferInfo {
	if i == nil {
		return nil
	}
	c := *i
	return &c
}
