// Package model defines the documents stored in the four projectideas
// containers and the registry describing them.
package model

import (
	"sync"

	"github.com/jacentio/projectideas/store"
)

// Container names.
const (
	UsersContainer    = "users"
	PostsContainer    = "posts"
	TagsContainer     = "tags"
	ProjectsContainer = "projects"
)

// Document kinds. Abstract kinds are families and are never stored.
const (
	KindUser                      store.Kind = "User"
	KindMessage                   store.Kind = "Message"
	KindReceivedMessage           store.Kind = "ReceivedMessage"
	KindReceivedIndividualMessage store.Kind = "ReceivedIndividualMessage"
	KindReceivedGroupMessage      store.Kind = "ReceivedGroupMessage"
	KindSentMessage               store.Kind = "SentMessage"
	KindSentIndividualMessage     store.Kind = "SentIndividualMessage"
	KindSentGroupMessage          store.Kind = "SentGroupMessage"
	KindUserSavedIdea             store.Kind = "UserSavedIdea"
	KindUserPostedIdea            store.Kind = "UserPostedIdea"
	KindUserJoinedProject         store.Kind = "UserJoinedProject"

	KindPost       store.Kind = "Post"
	KindIdea       store.Kind = "Idea"
	KindComment    store.Kind = "Comment"
	KindIdeaUpvote store.Kind = "IdeaUpvote"

	KindTag        store.Kind = "Tag"
	KindIdeaTag    store.Kind = "IdeaTag"
	KindProjectTag store.Kind = "ProjectTag"

	KindProject       store.Kind = "Project"
	KindProjectUpvote store.Kind = "ProjectUpvote"
)

var registry = sync.OnceValue(func() *store.Registry {
	r := store.NewRegistry()
	r.RegisterContainer(store.Container{Name: UsersContainer, PartitionKey: "userId"})
	r.RegisterContainer(store.Container{Name: PostsContainer, PartitionKey: "ideaId"})
	r.RegisterContainer(store.Container{Name: TagsContainer, PartitionKey: "type"})
	r.RegisterContainer(store.Container{Name: ProjectsContainer, PartitionKey: "projectId"})

	// Parents are registered before their variants.
	for _, spec := range []store.KindSpec{
		{Kind: KindUser, Container: UsersContainer},
		{Kind: KindMessage, Container: UsersContainer, Abstract: true},
		{Kind: KindReceivedMessage, Container: UsersContainer, Parent: KindMessage, Abstract: true},
		{Kind: KindReceivedIndividualMessage, Container: UsersContainer, Parent: KindReceivedMessage},
		{Kind: KindReceivedGroupMessage, Container: UsersContainer, Parent: KindReceivedMessage},
		{Kind: KindSentMessage, Container: UsersContainer, Parent: KindMessage, Abstract: true},
		{Kind: KindSentIndividualMessage, Container: UsersContainer, Parent: KindSentMessage},
		{Kind: KindSentGroupMessage, Container: UsersContainer, Parent: KindSentMessage},
		{Kind: KindUserSavedIdea, Container: UsersContainer},
		{Kind: KindUserPostedIdea, Container: UsersContainer},
		{Kind: KindUserJoinedProject, Container: UsersContainer},

		{Kind: KindPost, Container: PostsContainer, Abstract: true},
		{Kind: KindIdea, Container: PostsContainer, Parent: KindPost},
		{Kind: KindComment, Container: PostsContainer, Parent: KindPost},
		{Kind: KindIdeaUpvote, Container: PostsContainer},

		{Kind: KindTag, Container: TagsContainer, Abstract: true},
		{Kind: KindIdeaTag, Container: TagsContainer, Parent: KindTag},
		{Kind: KindProjectTag, Container: TagsContainer, Parent: KindTag},

		{Kind: KindProject, Container: ProjectsContainer},
		{Kind: KindProjectUpvote, Container: ProjectsContainer},
	} {
		r.Register(spec)
	}
	return r
})

// Registry returns the shared, read-only registry of projectideas kinds.
func Registry() *store.Registry {
	return registry()
}
