package annotator

import (
	"path/filepath"
	"strings"
)

// OutputSuffix is appended to the source stem to name the annotated video.
const OutputSuffix = "_detected.mp4"

// OutputPath derives the annotated video's path from the source path.
//
// The last path segment is taken after the final '/' or '\', whatever the
// host platform, and cut at its first '.'. A segment that starts with a dot
// keeps everything up to its final extension instead. The result is joined
// to outputDir; an empty outputDir means the working directory.
//
// @example
// OutputPath("/a/b/crowd.mp4", "")  // "crowd_detected.mp4"
// OutputPath(`C:\v\clip.v1.avi`, "out") // "out/clip_detected.mp4"
func OutputPath(sourcePath, outputDir string) string {
	name := sourcePath[strings.LastIndexAny(sourcePath, `/\`)+1:]

	stem := name
	if i := strings.IndexByte(name, '.'); i >= 0 {
		stem = name[:i]
	}
	if stem == "" {
		stem = strings.TrimSuffix(name, filepath.Ext(name))
	}
	if stem == "" {
		stem = name
	}

	return filepath.Join(outputDir, stem+OutputSuffix)
}
