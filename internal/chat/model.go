package chat

// Gemini / Imagen model IDs
//
// | Model                    | API Model ID              | Used for                      |
// |--------------------------|---------------------------|-------------------------------|
// | Imagen 4                 | imagen-4.0-generate-001   | Text-to-image generation      |
// | Gemini 2.5 Flash         | gemini-2.5-flash          | Image description             |
// | Gemini 2.5 Pro           | gemini-2.5-pro            | Edit suggestions, stories     |
// | Gemini 2.5 Flash Image   | gemini-2.5-flash-image    | Instruction-driven image edit |
const (
	// ModelImagen4 generates images from text prompts.
	ModelImagen4 = "imagen-4.0-generate-001"

	// ModelGemini25Flash is stable, balanced performance.
	ModelGemini25Flash = "gemini-2.5-flash"

	// ModelGemini25Pro is stable, for high-reasoning tasks.
	ModelGemini25Pro = "gemini-2.5-pro"

	// ModelGemini25FlashImage accepts an image plus instruction and returns an image.
	ModelGemini25FlashImage = "gemini-2.5-flash-image"
)

// Models selects the model ID used by each operation.
type Models struct {
	Image    string
	Describe string
	Suggest  string
	Story    string
	Edit     string
}

// DefaultModels returns the model assignment the studio ships with.
func DefaultModels() Models {
	return Models{
		Image:    ModelImagen4,
		Describe: ModelGemini25Flash,
		Suggest:  ModelGemini25Pro,
		Story:    ModelGemini25Pro,
		Edit:     ModelGemini25FlashImage,
	}
}

// withDefaults fills empty entries from DefaultModels.
func (m Models) withDefaults() Models {
	d := DefaultModels()
	if m.Image == "" {
		m.Image = d.Image
	}
	if m.Describe == "" {
		m.Describe = d.Describe
	}
	if m.Suggest == "" {
		m.Suggest = d.Suggest
	}
	if m.Story == "" {
		m.Story = d.Story
	}
	if m.Edit == "" {
		m.Edit = d.Edit
	}
	return m
}
