package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/m-mizutani/goerr/v2"
	"github.com/m-mizutani/veostudio/pkg/model"
	"github.com/m-mizutani/veostudio/pkg/usecase/generate"
	"github.com/urfave/cli/v3"
)

func generateCommand() *cli.Command {
	var (
		cfg        config
		prompt     string
		presetName string
		images     []string
		output     string
	)

	flags := []cli.Flag{
		&cli.StringFlag{
			Name:        "prompt",
			Aliases:     []string{"p"},
			Usage:       "Image generation prompt",
			Destination: &prompt,
		},
		&cli.StringFlag{
			Name:        "preset",
			Usage:       "Preset name to load parameters from",
			Destination: &presetName,
		},
		&cli.StringSliceFlag{
			Name:        "image",
			Aliases:     []string{"i"},
			Usage:       "Reference image file (repeatable)",
			Destination: &images,
		},
		&cli.StringFlag{
			Name:        "out-file",
			Usage:       "File name for the generated image (default: derived from the item ID)",
			Destination: &output,
		},
	}
	flags = append(flags, genaiFlags(&cfg)...)
	flags = append(flags, storageFlags(&cfg)...)
	flags = append(flags, presetFlags(&cfg)...)
	flags = append(flags, globalFlags(&cfg)...)

	return &cli.Command{
		Name:  "generate",
		Usage: "Generate an image from a prompt",
		Flags: flags,
		Action: func(ctx context.Context, c *cli.Command) error {
			if _, err := cfg.newLogger(); err != nil {
				return err
			}

			mdl := cfg.imageModel
			if p, err := cfg.resolvePreset(presetName); err != nil {
				return err
			} else if p != nil {
				if prompt == "" {
					prompt = p.Prompt
				}
				if p.Model != "" {
					mdl = p.Model
				}
			}
			if prompt == "" {
				return goerr.New("prompt is required")
			}

			refs, err := readImageFiles(images)
			if err != nil {
				return err
			}

			svc, err := cfg.newService(ctx)
			if err != nil {
				return err
			}

			id, err := svc.GenerateImage(ctx, &generate.ImageInput{
				Prompt: prompt,
				Model:  mdl,
				Images: refs,
			})
			if err != nil {
				return goerr.Wrap(err, "image generation failed")
			}

			item, err := findItem(svc, id)
			if err != nil {
				return err
			}

			path, err := saveDataURL(cfg.outputDir, output, string(id), item.MediaURL)
			if err != nil {
				return err
			}

			fmt.Fprintf(c.Root().Writer, "Saved image to %s\n", path)
			return nil
		},
	}
}

// readImageFiles loads reference images from disk, inferring MIME types
// from file extensions
func readImageFiles(paths []string) ([]*model.InputImage, error) {
	var images []*model.InputImage
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, goerr.Wrap(err, "failed to read image", goerr.V("path", p))
		}
		images = append(images, &model.InputImage{
			Data:     data,
			MIMEType: imageMIMEType(p),
		})
	}
	return images, nil
}

func imageMIMEType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

func findItem(svc *generate.Service, id model.ItemID) (*model.HistoryItem, error) {
	for _, item := range svc.History() {
		if item.ID == id {
			return item, nil
		}
	}
	return nil, goerr.New("generated item not found", goerr.V("id", id))
}

// saveDataURL decodes a data URI held in MediaURL and writes it to disk
func saveDataURL(dir, name, fallback, mediaURL string) (string, error) {
	data, mime, err := model.DecodeDataURL(mediaURL)
	if err != nil {
		return "", err
	}

	if name == "" {
		ext := ".png"
		if mime == "image/jpeg" {
			ext = ".jpg"
		}
		name = fallback + ext
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", goerr.Wrap(err, "failed to create output directory")
	}
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", goerr.Wrap(err, "failed to write image", goerr.V("path", path))
	}
	return path, nil
}
