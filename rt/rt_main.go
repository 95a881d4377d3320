package main

import (
	"flag"
	"runtime"

	"github.com/gekko3d/lbuffer"
	"github.com/gekko3d/lbuffer/rt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "TOML file with lighting pass settings")
	debug := flag.Bool("debug", false, "Enable debug logging (periodic frame stats)")
	flag.Parse()

	cfg := lbuffer.DefaultConfig()
	if *configPath != "" {
		var err error
		cfg, err = lbuffer.LoadConfig(*configPath)
		if err != nil {
			panic(err)
		}
	}
	log := lbuffer.NewDefaultLogger("lbuffer", cfg.Debug || *debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(1280, 720, "LBuffer Go", nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application := app.NewApp(window, cfg, log)
	if err := application.Init(); err != nil {
		panic(err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		if !application.MouseCaptured {
			return
		}
		width, height := w.GetSize()
		cx, cy := float64(width)/2, float64(height)/2
		application.Camera.Yaw += float32(xpos-cx) * application.Camera.Sensitivity
		application.Camera.Pitch -= float32(ypos-cy) * application.Camera.Sensitivity
		w.SetCursorPos(cx, cy)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if key == glfw.KeyTab && action == glfw.Press {
			application.MouseCaptured = !application.MouseCaptured
			if application.MouseCaptured {
				w.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			} else {
				w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
			}
		}
		if key == glfw.KeyF1 && action == glfw.Press {
			log.SetDebug(!log.DebugEnabled())
		}
		if key == glfw.KeyEscape && action == glfw.Press {
			w.SetShouldClose(true)
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
}
