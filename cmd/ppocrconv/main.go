// Converts LabelMe polygon and YOLO box annotations to the PaddleOCR detection and recognition
// label formats.
package main

import (
	"github.com/sensorable/ppocrconv/cmd/ppocrconv/cmd"
)

func main() {
	cmd.Execute()
}
