package federation

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMbinMagazineToCommunity(t *testing.T) {
	subscribed := true
	m := mbinMagazine{
		MagazineID:       9,
		Name:             "fediverse",
		IsAdult:          true,
		IsUserSubscribed: &subscribed,
	}

	c := mbinMagazineToCommunity(m)
	assert.Equal(t, "9", c.ID)
	assert.Equal(t, "fediverse", c.Name)
	assert.True(t, c.NSFW)
	assert.Equal(t, Subscribed, c.Subscribed)
	assert.Nil(t, c.LocalSubscribers)
	assert.True(t, c.IsPublic)
}

func TestMbinMagazineToCommunityUnsubscribed(t *testing.T) {
	c := mbinMagazineToCommunity(mbinMagazine{MagazineID: 3, Name: "golang"})
	assert.Equal(t, NotSubscribed, c.Subscribed)
}

func TestMagazineActorMatching(t *testing.T) {
	mbinID := "https://mbin.example/m/linux"
	lemmyID := "https://lemmy.example/c/linux"
	otherID := "https://lemmy.example/c/linux_gaming"

	assert.True(t, magazineMatchesActor(
		mbinMagazine{ApID: &mbinID},
		magazineActorIDs("mbin.example", "linux")))

	// a Lemmy-hosted community advertises /c/, not /m/
	assert.True(t, magazineMatchesActor(
		mbinMagazine{ApProfileID: &lemmyID},
		magazineActorIDs("lemmy.example", "linux")))

	assert.False(t, magazineMatchesActor(
		mbinMagazine{ApID: &otherID},
		magazineActorIDs("lemmy.example", "linux")))
	assert.False(t, magazineMatchesActor(
		mbinMagazine{},
		magazineActorIDs("lemmy.example", "linux")))
}
