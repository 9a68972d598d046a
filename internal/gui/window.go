// Package gui is the desktop form: a text box, the playback buttons, the speed
// and pitch sliders and the five-word preview.
package gui

import (
	"context"
	"fmt"
	"log/slog"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"github.com/dgnsrekt/ttsconverter-go/internal/app"
	"github.com/dgnsrekt/ttsconverter-go/internal/config"
	"github.com/dgnsrekt/ttsconverter-go/internal/highlight"
	"github.com/dgnsrekt/ttsconverter-go/internal/player"
)

// Title is the window title.
const Title = "TTS Converter"

// Controller is the set of session operations the form triggers.
type Controller interface {
	ConvertAndPlay(ctx context.Context) error
	SaveAsAudio(dest string) error
	StopAudio() error
	PauseResumeAudio() (player.State, error)
	LoadTextFromFile(path string) (string, error)
	SetText(text string)
	SetSpeed(v float64) float64
	SetPitch(v float64) float64
	Speed() float64
	Pitch() float64
}

// Window is the main form. It implements playback.View and app.Listener.
type Window struct {
	app    fyne.App
	window fyne.Window
	ctrl   Controller
	logger *slog.Logger

	entry       *widget.Entry
	speed       *widget.Slider
	pitch       *widget.Slider
	speedLabel  *widget.Label
	pitchLabel  *widget.Label
	status      *widget.Label
	preview     [highlight.Slots]*widget.Label
	loadBtn     *widget.Button
	convertBtn  *widget.Button
	saveBtn     *widget.Button
	pauseBtn    *widget.Button
	stopBtn     *widget.Button
	suppressing bool
}

// New builds the form on the given fyne application.
func New(a fyne.App, ctrl Controller, logger *slog.Logger) *Window {
	w := &Window{
		app:    a,
		ctrl:   ctrl,
		logger: logger,
	}
	w.setupUI()
	return w
}

func (w *Window) setupUI() {
	w.window = w.app.NewWindow(Title)
	w.window.Resize(fyne.NewSize(720, 560))

	w.entry = widget.NewMultiLineEntry()
	w.entry.Wrapping = fyne.TextWrapWord
	w.entry.SetPlaceHolder("Type or load the text to speak...")
	w.entry.OnChanged = func(text string) {
		if w.suppressing {
			return
		}
		w.ctrl.SetText(text)
	}

	w.loadBtn = widget.NewButtonWithIcon("Load File", theme.FolderOpenIcon(), w.onLoad)
	w.convertBtn = widget.NewButtonWithIcon("Convert and Play", theme.MediaPlayIcon(), w.onConvert)
	w.convertBtn.Importance = widget.HighImportance
	w.saveBtn = widget.NewButtonWithIcon("Save as Audio", theme.DocumentSaveIcon(), w.onSave)
	w.pauseBtn = widget.NewButtonWithIcon("Pause/Resume", theme.MediaPauseIcon(), w.onPauseResume)
	w.stopBtn = widget.NewButtonWithIcon("Stop", theme.MediaStopIcon(), w.onStop)

	w.speedLabel = widget.NewLabel("")
	w.speed = widget.NewSlider(config.MinSpeed, config.MaxSpeed)
	w.speed.Step = config.SliderStep
	w.speed.SetValue(w.ctrl.Speed())
	w.speed.OnChanged = func(v float64) {
		w.speedLabel.SetText(formatSetting("Speed", w.ctrl.SetSpeed(v)))
	}
	w.speedLabel.SetText(formatSetting("Speed", w.ctrl.Speed()))

	w.pitchLabel = widget.NewLabel("")
	w.pitch = widget.NewSlider(config.MinPitch, config.MaxPitch)
	w.pitch.Step = config.SliderStep
	w.pitch.SetValue(w.ctrl.Pitch())
	w.pitch.OnChanged = func(v float64) {
		w.pitchLabel.SetText(formatSetting("Pitch", w.ctrl.SetPitch(v)))
	}
	w.pitchLabel.SetText(formatSetting("Pitch", w.ctrl.Pitch()))

	previewBox := container.NewHBox()
	for i := range w.preview {
		w.preview[i] = widget.NewLabel("")
		w.preview[i].Alignment = fyne.TextAlignCenter
		previewBox.Add(w.preview[i])
	}

	w.status = widget.NewLabel("Ready")
	w.status.TextStyle = fyne.TextStyle{Italic: true}

	buttons := container.NewHBox(w.loadBtn, w.convertBtn, w.saveBtn, w.pauseBtn, w.stopBtn)
	sliders := container.NewVBox(
		container.NewBorder(nil, nil, w.speedLabel, nil, w.speed),
		container.NewBorder(nil, nil, w.pitchLabel, nil, w.pitch),
	)
	bottom := container.NewVBox(
		buttons,
		sliders,
		widget.NewSeparator(),
		container.NewCenter(previewBox),
		w.status,
	)

	w.window.SetContent(container.NewBorder(nil, bottom, nil, nil, container.NewScroll(w.entry)))
}

func formatSetting(name string, v float64) string {
	return fmt.Sprintf("%s: %.1fx", name, v)
}

// Run shows the window and blocks until the application quits.
func (w *Window) Run() {
	w.window.ShowAndRun()
}

// Quit closes the application. It is safe to call from any goroutine.
func (w *Window) Quit() {
	fyne.Do(w.app.Quit)
}

// ShowPreview renders the highlight preview.
func (w *Window) ShowPreview(p highlight.Preview) {
	fyne.Do(func() {
		w.renderPreview(p)
	})
}

// ShowError shows err in a dialog: a warning for recoverable input problems,
// an error otherwise.
func (w *Window) ShowError(err error) {
	fyne.Do(func() {
		w.showError(err)
	})
}

// TextChanged mirrors a buffer change made outside the form.
func (w *Window) TextChanged(text string) {
	fyne.Do(func() {
		w.setText(text)
	})
}

// SettingsChanged mirrors slider changes made outside the form.
func (w *Window) SettingsChanged(speed, pitch float64) {
	fyne.Do(func() {
		w.setSettings(speed, pitch)
	})
}

func (w *Window) renderPreview(p highlight.Preview) {
	for i, slot := range p {
		label := w.preview[i]
		label.Text = slot.Word
		if slot.Current {
			label.TextStyle = fyne.TextStyle{Bold: true}
			label.Importance = widget.HighImportance
		} else {
			label.TextStyle = fyne.TextStyle{}
			label.Importance = widget.MediumImportance
		}
		label.Refresh()
	}
}

func (w *Window) showError(err error) {
	if app.IsWarning(err) {
		dialog.ShowInformation("Warning", err.Error(), w.window)
		return
	}
	dialog.ShowError(err, w.window)
}

// setText updates the entry without echoing the change back to the controller.
func (w *Window) setText(text string) {
	if w.entry.Text == text {
		return
	}
	w.suppressing = true
	w.entry.SetText(text)
	w.suppressing = false
}

func (w *Window) setSettings(speed, pitch float64) {
	w.speed.SetValue(speed)
	w.pitch.SetValue(pitch)
	w.speedLabel.SetText(formatSetting("Speed", speed))
	w.pitchLabel.SetText(formatSetting("Pitch", pitch))
}

func (w *Window) setStatus(text string) {
	fyne.Do(func() {
		w.status.SetText(text)
	})
}

func (w *Window) onLoad() {
	d := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			w.showError(err)
			return
		}
		if reader == nil {
			return
		}
		path := reader.URI().Path()
		reader.Close()

		text, err := w.ctrl.LoadTextFromFile(path)
		if err != nil {
			w.showError(err)
			return
		}
		w.setText(text)
		w.status.SetText("Loaded " + reader.URI().Name())
	}, w.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".txt"}))
	d.Show()
}

// Button actions that may block on synthesis or on the playback queue run
// off the UI goroutine; their results come back through fyne.Do.
func (w *Window) onConvert() {
	w.setStatus("Converting...")
	go func() {
		if err := w.ctrl.ConvertAndPlay(context.Background()); err != nil {
			w.logger.Debug("convert and play failed", "error", err)
			w.setStatus("Ready")
			w.ShowError(err)
			return
		}
		w.setStatus("Playing")
	}()
}

func (w *Window) onSave() {
	d := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			w.showError(err)
			return
		}
		if writer == nil {
			return
		}
		path := writer.URI().Path()
		writer.Close()

		go func() {
			if err := w.ctrl.SaveAsAudio(path); err != nil {
				w.ShowError(err)
				return
			}
			w.setStatus("Saved " + path)
		}()
	}, w.window)
	d.SetFilter(storage.NewExtensionFileFilter([]string{".mp3", ".wav"}))
	d.SetFileName("speech.wav")
	d.Show()
}

func (w *Window) onPauseResume() {
	go func() {
		state, err := w.ctrl.PauseResumeAudio()
		if err != nil {
			w.ShowError(err)
			return
		}
		switch state {
		case player.Paused:
			w.setStatus("Paused")
		case player.Playing:
			w.setStatus("Playing")
		}
	}()
}

func (w *Window) onStop() {
	go func() {
		if err := w.ctrl.StopAudio(); err != nil {
			w.ShowError(err)
			return
		}
		w.setStatus("Stopped")
	}()
}
