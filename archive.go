package lessonplanner

import (
	"fmt"
	"strings"
)

// ArchiveMimeType is the type of the practice image bundle
const ArchiveMimeType = "application/zip"

// BuildArchive bundles a batch into <title>_Images.zip: a dialogue transcript covering
// every scene plus one image file per COMPLETED scene. Scenes without an image add no file.
func BuildArchive(items []ScenarioItem, plan *ActivityPlan, focusPoint string) (*Artifact, error) {
	const op = "BuildArchive"
	if plan == nil {
		return nil, invalidInput(op, "plan is required")
	}
	title := sanitizeFilename(plan.Title, "Activity")
	folder := "Practice_Images_" + title + "/"

	var transcript strings.Builder
	transcript.WriteString(fmt.Sprintf("Activity: %s\nTeaching Focus: %s\n\n", plan.Title, focusPoint))
	for i, item := range items {
		transcript.WriteString(fmt.Sprintf("Scene %d:\nDialogue: %s\nDescription: %s\n\n", i+1, item.Dialogue, item.Description))
	}

	pkg := newZipPackage()
	pkg.addString(folder+"Dialogues.txt", transcript.String())

	images := 0
	for i, item := range items {
		if item.Status != StatusCompleted || item.ImageURL == "" {
			continue
		}
		mimeType, data, err := ParseDataURI(item.ImageURL)
		if err != nil {
			opLog(op).WithError(err).Warnf("Skipping scene %d with unreadable image", i+1)
			continue
		}
		pkg.add(fmt.Sprintf("%sScene_%d.%s", folder, i+1, extensionForMime(mimeType)), data)
		images++
	}

	data, err := pkg.bytes()
	if err != nil {
		return nil, newError(op, ErrExportFailed, err)
	}
	opLog(op).Infof("Archived %d scenes with %d images", len(items), images)

	return &Artifact{
		Filename: title + "_Images.zip",
		MimeType: ArchiveMimeType,
		Data:     data,
	}, nil
}
