package provision

import "comfyd/pkg/types"

// catalog maps each model set to the artifacts it stages. Text encoders
// shared between sets (clip_l, t5xxl) are listed per dependent set and
// deduplicated by destination when sets are merged.
var catalog = map[types.ModelSet][]types.ArtifactSpec{
	types.ModelSetSDXL: {
		{
			Family: types.FamilyCheckpoints,
			URL:    "https://huggingface.co/stabilityai/stable-diffusion-xl-base-1.0/resolve/main/sd_xl_base_1.0.safetensors",
			Dest:   "checkpoints/sd_xl_base_1.0.safetensors",
		},
		{
			Family: types.FamilyVAE,
			URL:    "https://huggingface.co/stabilityai/sdxl-vae/resolve/main/sdxl_vae.safetensors",
			Dest:   "vae/sdxl_vae.safetensors",
		},
		{
			Family: types.FamilyVAE,
			URL:    "https://huggingface.co/madebyollin/sdxl-vae-fp16-fix/resolve/main/sdxl_vae.safetensors",
			Dest:   "vae/sdxl-vae-fp16-fix.safetensors",
		},
	},
	types.ModelSetSD3: {
		{
			Family: types.FamilyCheckpoints,
			URL:    "https://huggingface.co/stabilityai/stable-diffusion-3-medium/resolve/main/sd3_medium_incl_clips_t5xxlfp8.safetensors",
			Dest:   "checkpoints/sd3_medium_incl_clips_t5xxlfp8.safetensors",
			Gated:  true,
		},
	},
	types.ModelSetFluxSchnell: {
		{
			Family: types.FamilyUNet,
			URL:    "https://huggingface.co/black-forest-labs/FLUX.1-schnell/resolve/main/flux1-schnell.safetensors",
			Dest:   "unet/flux1-schnell.safetensors",
		},
		{
			Family: types.FamilyVAE,
			URL:    "https://huggingface.co/black-forest-labs/FLUX.1-schnell/resolve/main/ae.safetensors",
			Dest:   "vae/flux1-schnell-ae.safetensors",
		},
		clipL,
		t5xxlFP8,
	},
	types.ModelSetFluxDev: {
		{
			Family: types.FamilyUNet,
			URL:    "https://huggingface.co/black-forest-labs/FLUX.1-dev/resolve/main/flux1-dev.safetensors",
			Dest:   "unet/flux1-dev.safetensors",
			Gated:  true,
		},
		{
			Family: types.FamilyVAE,
			URL:    "https://huggingface.co/black-forest-labs/FLUX.1-dev/resolve/main/ae.safetensors",
			Dest:   "vae/flux1-dev-ae.safetensors",
			Gated:  true,
		},
		clipL,
		t5xxlFP8,
	},
}

// Text encoders required by both flux sets.
var (
	clipL = types.ArtifactSpec{
		Family: types.FamilyCLIP,
		URL:    "https://huggingface.co/comfyanonymous/flux_text_encoders/resolve/main/clip_l.safetensors",
		Dest:   "clip/clip_l.safetensors",
	}
	t5xxlFP8 = types.ArtifactSpec{
		Family: types.FamilyCLIP,
		URL:    "https://huggingface.co/comfyanonymous/flux_text_encoders/resolve/main/t5xxl_fp8_e4m3fn.safetensors",
		Dest:   "clip/t5xxl_fp8_e4m3fn.safetensors",
	}
)
