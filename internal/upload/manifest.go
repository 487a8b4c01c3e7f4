package upload

import "github.com/johnrirwin/gemlisting/internal/models"

// BuildManifest turns uploaded tasks into the media list of a gem record.
// order is the submission index and only the first image is primary. A
// stored certificate goes last without being uploaded again.
func BuildManifest(tasks []models.UploadTask, stored *models.StoredCertificateDescriptor) []models.MediaFile {
	files := make([]models.MediaFile, 0, len(tasks)+1)
	primaryAssigned := false

	for i, task := range tasks {
		isPrimary := false
		if task.Kind == models.MediaKindImage && !primaryAssigned {
			isPrimary = true
			primaryAssigned = true
		}

		files = append(files, models.MediaFile{
			S3Key:     task.S3Key,
			Type:      task.Kind,
			FileName:  task.FileName,
			FileSize:  task.Size,
			MIMEType:  task.MIMEType,
			IsPrimary: isPrimary,
			Order:     i,
		})
	}

	if stored != nil && stored.S3Key != "" {
		files = append(files, models.MediaFile{
			S3Key:    stored.S3Key,
			Type:     models.MediaKindCertificate,
			FileName: stored.FileName,
			FileSize: stored.Size,
			MIMEType: stored.MIMEType,
			Order:    len(files),
		})
	}

	return files
}
