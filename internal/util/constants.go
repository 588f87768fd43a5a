package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
)

// 证书编号前缀，编号格式: CERT-<unix秒>-<userID>-<courseID>
const CertificateSerialPrefix = "CERT"
