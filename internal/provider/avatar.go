package provider

import "fmt"

const cdnURL = "https://cdn.discordapp.com"

// AvatarURL returns the image URL for a user's avatar. Users without a custom
// avatar get one of the five default avatars, picked by discriminator mod 5.
// A missing or non-numeric discriminator selects default avatar 0.
func AvatarURL(userID, avatar, discriminator string) string {
	if avatar != "" {
		return fmt.Sprintf("%s/avatars/%s/%s.png?size=256", cdnURL, userID, avatar)
	}
	return fmt.Sprintf("%s/embed/avatars/%d.png", cdnURL, defaultAvatarIndex(discriminator))
}

// AvatarURL returns the avatar image URL for u
func (u *User) AvatarURL() string {
	return AvatarURL(u.ID, u.Avatar, u.Discriminator)
}

func defaultAvatarIndex(discriminator string) int {
	if discriminator == "" {
		return 0
	}
	for _, c := range discriminator {
		if c < '0' || c > '9' {
			return 0
		}
	}
	// A decimal number mod 5 is its last digit mod 5, so any length works
	return int(discriminator[len(discriminator)-1]-'0') % 5
}
