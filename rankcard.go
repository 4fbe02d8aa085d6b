package main

import (
	"bytes"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/disgoorg/disgo/discord"
	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font/gofont/goregular"
)

// ===========================
// Rank Card Rendering
// ===========================

const (
	rankCardWidth  = 900
	rankCardHeight = 250
)

type RankCardData struct {
	Username string
	Avatar   image.Image
	Level    int
	XP       int
	Needed   int
	Rank     int
}

// RenderRankCard draws the rank card PNG: background, circular avatar,
// username, rank/level text and an XP progress bar.
func RenderRankCard(data RankCardData) (*bytes.Buffer, error) {
	dc := gg.NewContext(rankCardWidth, rankCardHeight)

	// Background: configured image if present, flat fill otherwise.
	drewBackground := false
	if GlobalConfig != nil && GlobalConfig.RankCardBackground != "" {
		if bg, err := gg.LoadImage(GlobalConfig.RankCardBackground); err == nil {
			scaled := image.NewRGBA(image.Rect(0, 0, rankCardWidth, rankCardHeight))
			xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), bg, bg.Bounds(), xdraw.Over, nil)
			dc.DrawImage(scaled, 0, 0)
			drewBackground = true
		}
	}
	if !drewBackground {
		dc.SetHexColor("#23272A")
		dc.Clear()
	}

	// Dark panel for readability over image backgrounds.
	dc.SetRGBA(0, 0, 0, 0.45)
	dc.DrawRoundedRectangle(20, 20, rankCardWidth-40, rankCardHeight-40, 18)
	dc.Fill()

	font, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	// Avatar in a circle on the left.
	if data.Avatar != nil {
		const size = 160
		scaled := image.NewRGBA(image.Rect(0, 0, size, size))
		xdraw.ApproxBiLinear.Scale(scaled, scaled.Bounds(), data.Avatar, data.Avatar.Bounds(), xdraw.Over, nil)

		dc.Push()
		dc.DrawCircle(45+size/2, float64(rankCardHeight)/2, size/2)
		dc.Clip()
		dc.DrawImage(scaled, 45, (rankCardHeight-size)/2)
		dc.ResetClip()
		dc.Pop()
	}

	// Username.
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 36}))
	dc.SetHexColor("#FFFFFF")
	dc.DrawString(Truncate(data.Username, 20), 240, 95)

	// Rank and level.
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 26}))
	dc.SetHexColor("#B9BBBE")
	dc.DrawString(fmt.Sprintf("Rank #%d   •   Level %d", data.Rank, data.Level), 240, 135)

	// Progress bar.
	const barX, barY, barW, barH = 240.0, 165.0, 600.0, 30.0
	dc.SetHexColor("#484B4E")
	dc.DrawRoundedRectangle(barX, barY, barW, barH, barH/2)
	dc.Fill()

	progress := 0.0
	if data.Needed > 0 {
		progress = float64(data.XP) / float64(data.Needed)
	}
	if progress > 1 {
		progress = 1
	}
	if progress > 0 {
		dc.SetHexColor("#F1C40F")
		dc.DrawRoundedRectangle(barX, barY, barW*progress, barH, barH/2)
		dc.Fill()
	}

	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: 18}))
	dc.SetHexColor("#FFFFFF")
	dc.DrawStringAnchored(fmt.Sprintf("%d / %d XP", data.XP, data.Needed), barX+barW/2, barY+barH/2, 0.5, 0.35)

	buf := &bytes.Buffer{}
	if err := png.Encode(buf, dc.Image()); err != nil {
		return nil, fmt.Errorf("failed to encode rank card: %w", err)
	}
	return buf, nil
}

// fetchAvatar downloads and decodes a user's avatar. Returns nil on any
// failure so the card renders without it.
func fetchAvatar(user discord.User) image.Image {
	resp, err := HttpClient.Get(user.EffectiveAvatarURL())
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return nil
	}

	img, _, err := image.Decode(resp.Body)
	if err != nil {
		return nil
	}
	return img
}
