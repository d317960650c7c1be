// Package ingestion implements the two upload ingress modes — a single
// direct-upload request and a resumable chunked upload — sharing one quota
// contract and emitting the same upload-queue / status-queue(uploaded) pair
// on success, per the resource-creation half of the pipeline.
package ingestion

// UploadQueueMessage is the message handed to the scan worker once an
// object is fully committed to the store.
type UploadQueueMessage struct {
	PresignedURL string `json:"presigned_url"`
	FileSize     int64  `json:"file_size"`
	ObjectName   string `json:"object_name"`
}

// StatusUploadedMessage is the status-queue variant the ingestion engine
// emits once an object commits, creating the resource row.
type StatusUploadedMessage struct {
	Status     string `json:"status"`
	ObjectName string `json:"object_name"`
	UserID     string `json:"user_id"`
	FileName   string `json:"file_name"`
}

func NewStatusUploadedMessage(objectName, userID, fileName string) StatusUploadedMessage {
	return StatusUploadedMessage{
		Status:     "uploaded",
		ObjectName: objectName,
		UserID:     userID,
		FileName:   fileName,
	}
}
