package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"cartoonify/internal/config"
	"cartoonify/internal/filter"
	"cartoonify/internal/logger"
	"cartoonify/internal/service"
)

var imageExtensions = map[string]bool{
	".jpg": true, ".jpeg": true, ".png": true, ".bmp": true, ".webp": true, ".tif": true, ".tiff": true,
}

func main() {
	in := flag.String("in", "", "Input image or video")
	out := flag.String("out", "", "Output path (default: <in>_cartoon.<ext>)")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(2)
	}

	ext := strings.ToLower(filepath.Ext(*in))
	isImage := imageExtensions[ext]

	if *out == "" {
		outExt := ".mp4"
		if isImage {
			outExt = ".jpg"
		}
		*out = strings.TrimSuffix(*in, filepath.Ext(*in)) + "_cartoon" + outExt
	}

	cfg := config.Load()

	if isImage {
		if err := convertImage(*in, *out, cfg.Filter); err != nil {
			log.Fatalf("Failed to cartoonify image: %v", err)
		}
		fmt.Printf("✅ Wrote %s\n", *out)
		return
	}

	lg := logger.NewLogger(cfg)
	defer lg.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	manager := service.NewManager(cfg, lg, nil, nil, nil, nil)
	result, err := manager.ConvertVideo(ctx, *in, *out, func(frames, total int) {
		if total > 0 {
			fmt.Printf("\r🎬 %d/%d frames", frames, total)
		} else {
			fmt.Printf("\r🎬 %d frames", frames)
		}
	})
	fmt.Println()
	if err != nil {
		stop()
		lg.Close()
		log.Fatalf("Failed to cartoonify video after %d frames: %v", result.Frames, err)
	}

	fmt.Printf("✅ Wrote %s (%d frames, %dx%d @ %.2f fps)\n",
		*out, result.Frames, result.Props.Width, result.Props.Height, result.Props.FPS)
	if result.Partial() {
		fmt.Printf("⚠️  Source reported %d frames, only %d could be read\n", result.Props.FrameCount, result.Frames)
	}
}

func convertImage(in, out string, p filter.Params) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return err
	}

	frame, err := filter.Decode(data)
	if err != nil {
		return err
	}
	defer frame.Close()

	cartoon, err := filter.Cartoonify(frame, p)
	if err != nil {
		return err
	}
	defer cartoon.Close()

	encoded, err := filter.EncodeJPEG(cartoon)
	if err != nil {
		return err
	}
	return os.WriteFile(out, encoded, 0644)
}
