package main

import (
	"fmt"
	"image"
	"image/jpeg"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/your-org/skycam/internal/fusion"
)

var fuseOutput string

var fuseCmd = &cobra.Command{
	Use:   "fuse <image> <image> [image...]",
	Short: "Fuse a bracket set of JPEGs into one image by hand",
	Long: `Runs exposure fusion over the given images, darkest to brightest, and
writes a single fused JPEG. Inputs are sorted by name, matching the
_b0.._bN ordering the capture pipeline produces.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runFuse,
}

func init() {
	rootCmd.AddCommand(fuseCmd)
	fuseCmd.Flags().StringVarP(&fuseOutput, "output", "o", "fused.jpg", "Output file path")
}

func runFuse(cmd *cobra.Command, args []string) error {
	paths := append([]string(nil), args...)
	sort.Strings(paths)

	sources := make([]image.Image, 0, len(paths))
	for _, p := range paths {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("open %s: %w", p, err)
		}
		img, _, err := image.Decode(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("decode %s: %w", p, err)
		}
		sources = append(sources, img)
	}

	fused, err := fusion.Fuse(sources)
	if err != nil {
		return fmt.Errorf("fuse: %w", err)
	}

	out, err := os.Create(fuseOutput)
	if err != nil {
		return fmt.Errorf("create %s: %w", fuseOutput, err)
	}
	defer out.Close()

	if err := jpeg.Encode(out, fused, &jpeg.Options{Quality: 92}); err != nil {
		return fmt.Errorf("encode: %w", err)
	}

	fmt.Printf("Fused %d images into %s\n", len(sources), fuseOutput)
	return nil
}
