package discord

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/bwmarrin/discordgo"
	. "github.com/smartystreets/goconvey/convey"
)

type fakeSender struct {
	channel string
	msg     *discordgo.MessageSend
	body    []byte
	err     error
}

func (f *fakeSender) ChannelMessageSendComplex(channelID string, data *discordgo.MessageSend, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.msg = data
	if len(data.Files) > 0 {
		f.body, _ = io.ReadAll(data.Files[0].Reader)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &discordgo.Message{ID: "m1", ChannelID: channelID}, nil
}

func TestPoster(t *testing.T) {
	Convey("Given a poster with a default channel", t, func() {
		sender := &fakeSender{}
		p := newPoster(sender, WithDefaultChannel("general"))
		ctx := context.Background()
		png := []byte("\x89PNG")

		Convey("When posting to a named channel", func() {
			So(p.PostCard(ctx, "duels", "**bob** wins", png), ShouldBeNil)

			Convey("Then the card is attached to the message", func() {
				So(sender.channel, ShouldEqual, "duels")
				So(sender.msg.Content, ShouldEqual, "**bob** wins")
				So(len(sender.msg.Files), ShouldEqual, 1)
				So(sender.msg.Files[0].Name, ShouldEqual, cardFileName)
				So(sender.msg.Files[0].ContentType, ShouldEqual, "image/png")
				So(sender.body, ShouldResemble, png)
			})
		})

		Convey("When no channel is named the default is used", func() {
			So(p.PostCard(ctx, "", "x", png), ShouldBeNil)
			So(sender.channel, ShouldEqual, "general")
		})

		Convey("When the send fails the error is wrapped", func() {
			boom := errors.New("rate limited")
			sender.err = boom
			err := p.PostCard(ctx, "duels", "x", png)
			So(errors.Is(err, boom), ShouldBeTrue)
		})
	})

	Convey("Given a poster without a default channel", t, func() {
		p := newPoster(&fakeSender{})
		err := p.PostCard(context.Background(), "", "x", nil)
		So(errors.Is(err, ErrNoChannel), ShouldBeTrue)
	})

	Convey("Given an empty token", t, func() {
		_, err := New("")
		So(errors.Is(err, ErrNoToken), ShouldBeTrue)
	})
}
