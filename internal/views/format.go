package views

import (
	"fmt"
	"math"
	"path"
	"strings"
)

var sizeUnits = []string{"Bytes", "KB", "MB", "GB"}

// FormatSize renders n bytes the way the file table shows them, e.g.
// "1.5 KB". Sizes below one byte render as "0 Bytes".
func FormatSize(n int64) string {
	if n <= 0 {
		return "0 Bytes"
	}
	i := int(math.Floor(math.Log(float64(n)) / math.Log(1024)))
	if i >= len(sizeUnits) {
		i = len(sizeUnits) - 1
	}
	v := float64(n) / math.Pow(1024, float64(i))
	v = math.Round(v*100) / 100
	return fmt.Sprintf("%s %s", trimFloat(v), sizeUnits[i])
}

func trimFloat(v float64) string {
	s := fmt.Sprintf("%.2f", v)
	for s[len(s)-1] == '0' {
		s = s[:len(s)-1]
	}
	if s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func exportedMessage(n int) string {
	if n == 1 {
		return "Exported 1 file"
	}
	return fmt.Sprintf("Exported %d files", n)
}

// withFileID turns "report.pdf" into "report-7.pdf".
func withFileID(name string, fileID int64) string {
	ext := path.Ext(name)
	return fmt.Sprintf("%s-%d%s", strings.TrimSuffix(name, ext), fileID, ext)
}
