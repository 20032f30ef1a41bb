package domain

import "time"

// Face capture angles accepted by the upload endpoint.
const (
	FaceTypeStraight = "straight"
	FaceTypeLeft     = "left"
	FaceTypeRight    = "right"
)

// ValidFaceType reports whether t is one of the accepted capture angles.
func ValidFaceType(t string) bool {
	return t == FaceTypeStraight || t == FaceTypeLeft || t == FaceTypeRight
}

// FaceImage is the metadata record for one uploaded face capture.
// The image bytes themselves live in object storage under Object.
type FaceImage struct {
	FaceID      string    `json:"id" dynamodbav:"face_id"`
	UserID      string    `json:"user_id" dynamodbav:"user_id"`
	FaceType    string    `json:"face_type" dynamodbav:"face_type"`
	Object      string    `json:"object" dynamodbav:"object"`
	FileName    string    `json:"file_name" dynamodbav:"file_name"`
	Size        int64     `json:"size" dynamodbav:"size"`
	ContentType string    `json:"content_type" dynamodbav:"content_type"`
	UploadedAt  time.Time `json:"uploaded_at" dynamodbav:"uploaded_at"`
}
