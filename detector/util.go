package detector

import "runtime"

// SharedLibPath returns the conventional location of the ONNX Runtime shared
// library for the current platform, or "" when the platform is unsupported.
func SharedLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "third_party/onnxruntime.dll"
	case "darwin":
		return "third_party/libonnxruntime.dylib"
	case "linux":
		if runtime.GOARCH == "arm64" {
			return "third_party/onnxruntime_arm64.so"
		}
		return "third_party/onnxruntime.so"
	}
	return ""
}
