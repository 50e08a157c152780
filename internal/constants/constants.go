package constants

// Content Types
const (
	ContentTypeJSON = "application/json"
	ContentTypeText = "Content-Type"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Date formats
const (
	DateFormat    = "2006-01-02"
	DateFormatAlt = "02-01-2006"
	DateFormatVE  = "02/01/2006"
	DateFormatISO = "2006-01-02T15:04:05"
)

// Upload form fields
const (
	FieldProductFile  = "productos"
	FieldReceivedFile = "recibidos"
	FieldGenerales    = "generales"
)
