package config

type UploadConfig struct {
	AllowedMimeTypes  []string
	AllowedExtensions []string
	MaxSizeMB         int64
	PathPrefix        string
}

var UploadContexts = map[string]UploadConfig{
	// Выгрузки справочников и продаж ваучеров
	"spreadsheet": {
		AllowedMimeTypes: []string{
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
			"application/vnd.ms-excel.sheet.macroEnabled.12",
			"application/zip",
			"text/csv",
			"text/tab-separated-values",
			"text/plain",
		},
		AllowedExtensions: []string{".xlsx", ".xlsm", ".csv", ".txt"},
		MaxSizeMB:         20,
		PathPrefix:        "imports",
	},
}
