package domain

type QRCode struct {
	TokenID  string `json:"token_id"`
	URL      string `json:"qr_code_url"`
	Image    string `json:"qr_code_data_url"`
	MimeType string `json:"mime_type"`
}
