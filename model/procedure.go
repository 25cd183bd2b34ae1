package model

import (
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/projectideas/store"
)

// UpdateUsername returns a partition procedure that rewrites every
// denormalized copy of userID's username within one partition: the author
// name on ideas and comments, and the member and join request entries on
// projects. Running it again on the same partition changes nothing.
func UpdateUsername(userID, username string) store.Procedure {
	return func(items []store.Attributes) []store.Attributes {
		var changed []store.Attributes
		for _, item := range items {
			if updated, ok := renameAuthor(item, userID, username); ok {
				changed = append(changed, updated)
				continue
			}
			if updated, ok := renameProjectMember(item, userID, username); ok {
				changed = append(changed, updated)
			}
		}
		return changed
	}
}

func renameAuthor(item store.Attributes, userID, username string) (store.Attributes, bool) {
	if stringAttr(item, "authorId") != userID || stringAttr(item, "authorUsername") == username {
		return nil, false
	}
	out := make(store.Attributes, len(item))
	for k, v := range item {
		out[k] = v
	}
	out["authorUsername"] = &types.AttributeValueMemberS{Value: username}
	return out, true
}

func renameProjectMember(item store.Attributes, userID, username string) (store.Attributes, bool) {
	if stringAttr(item, "type") != string(KindProject) {
		return nil, false
	}
	var p Project
	if err := attributevalue.UnmarshalMap(item, &p); err != nil {
		return nil, false
	}

	renamed := false
	for i := range p.TeamMembers {
		if p.TeamMembers[i].UserID == userID && p.TeamMembers[i].Username != username {
			p.TeamMembers[i].Username = username
			renamed = true
		}
	}
	for i := range p.UsersRequestingToJoin {
		if p.UsersRequestingToJoin[i].UserID == userID && p.UsersRequestingToJoin[i].Username != username {
			p.UsersRequestingToJoin[i].Username = username
			renamed = true
		}
	}
	if !renamed {
		return nil, false
	}

	out, err := attributevalue.MarshalMap(p)
	if err != nil {
		return nil, false
	}
	out["type"] = item["type"]
	return out, true
}

func stringAttr(item store.Attributes, key string) string {
	if v, ok := item[key].(*types.AttributeValueMemberS); ok {
		return v.Value
	}
	return ""
}
