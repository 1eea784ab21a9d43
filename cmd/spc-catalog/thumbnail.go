package main

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"spc-catalog/internal/media"
)

func (c *CLI) newThumbnailCmd() *cobra.Command {
	var (
		assetsDir string
		size      int
		quality   string
		format    string
		out       string
	)

	cmd := &cobra.Command{
		Use:   "thumbnail <asset>",
		Short: "Render one thumbnail to a file",
		Long: `Render a thumbnail of an asset with the same generator the server uses,
decoding with the pure Go decoders.

The asset path is relative to --assets. Use --out - to write the image to
stdout.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := url.Values{}
			values.Set("size", strconv.Itoa(size))
			values.Set("quality", quality)
			values.Set("format", format)
			opts, err := media.ParseOptions(values)
			if err != nil {
				return err
			}

			gen := media.NewGenerator(media.NewStore(assetsDir))
			thumb, err := gen.Generate(cmd.Context(), media.Request{Source: args[0], Options: opts})
			if err != nil {
				return err
			}

			if out == "-" {
				_, err = c.out.Write(thumb.Data)
				return err
			}
			if out == "" {
				out = thumbnailFileName(args[0], opts.Size, thumb.Format)
			}
			if err := os.WriteFile(out, thumb.Data, 0o644); err != nil {
				return err
			}

			_, err = fmt.Fprintf(c.out, "%s: %dx%d %s, %s\n",
				out, thumb.Width, thumb.Height, thumb.Format, humanize.Bytes(uint64(len(thumb.Data))))
			return err
		},
	}

	cmd.Flags().StringVar(&assetsDir, "assets", envOr("ASSETS_DIR", "."), "Assets directory")
	cmd.Flags().IntVarP(&size, "size", "s", media.DefaultSize, "Bounding box edge in pixels")
	cmd.Flags().StringVarP(&quality, "quality", "q", strconv.Itoa(media.DefaultQuality), "JPEG quality, 1..100 or a fraction such as 0.8")
	cmd.Flags().StringVar(&format, "format", string(media.FormatAuto), "Output format: jpeg, png or auto")
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: <name>_<size>.<ext> in the working directory)")
	return cmd
}

// thumbnailFileName derives e.g. "oak_300.jpg" from "products/oak.png".
func thumbnailFileName(source string, size int, format media.Format) string {
	base := filepath.Base(source)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	ext := "jpg"
	if format == media.FormatPNG {
		ext = "png"
	}
	return fmt.Sprintf("%s_%d.%s", base, size, ext)
}
